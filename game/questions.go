package game

type QuestionProgress struct {
	Questions []Question
	Current   int
	Total     int
}

type QuestionSelection struct {
	Question string
	AskedBy  string
}

type QuestionOutcome struct {
	Progress QuestionProgress
	Selected *QuestionSelection
}

// SubmitQuestion records a candidate question. Submissions are never
// deduplicated. Once required questions are in, one is drawn uniformly from
// all of them; the draw happens at most once per turn.
func SubmitQuestion(session *GameSession, authorID uint, authorName, text string, required int, rng Random) QuestionOutcome {
	session.Questions = append(session.Questions, Question{
		AuthorID:   authorID,
		AuthorName: authorName,
		Text:       text,
	})

	outcome := QuestionOutcome{
		Progress: QuestionProgress{
			Questions: append([]Question(nil), session.Questions...),
			Current:   len(session.Questions),
			Total:     required,
		},
	}

	if session.SelectedQuestion != nil || len(session.Questions) < required {
		return outcome
	}

	picked := session.Questions[rng.IntN(len(session.Questions))]
	text = picked.Text
	session.SelectedQuestion = &text
	outcome.Selected = &QuestionSelection{Question: picked.Text, AskedBy: picked.AuthorName}
	return outcome
}
