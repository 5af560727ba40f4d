package model

import "time"

// Issue は医療者への質問とその回答を表す。
type Issue struct {
	Record
	Question   string
	QuestionTo string
	Answer     string
	DateAnswer *time.Time
}
