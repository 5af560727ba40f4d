package model

import "time"

// Appointment は診察の予約を表す。
// リマインダーは予約日時からのオフセット（期間と単位）を2つまで持つ。
type Appointment struct {
	Record
	AppointmentType   string
	Title             string
	Body              string
	Date              time.Time
	Hour              string
	RecallOneDuration int
	RecallOneUnit     string
	RecallTwoDuration int
	RecallTwoUnit     string
}

// AppointmentTypes は予約種別の選択肢。
var AppointmentTypes = []Choice{
	{Value: "general_practitioner", Label: "かかりつけ医"},
	{Value: "diabetologist", Label: "糖尿病専門医"},
	{Value: "ophthalmologist", Label: "眼科"},
	{Value: "dentist", Label: "歯科"},
	{Value: "podiatrist", Label: "フットケア"},
	{Value: "laboratory", Label: "検査機関"},
	{Value: "other", Label: "その他"},
}

// RecallUnits はリマインダー期間の単位の選択肢。
var RecallUnits = []Choice{
	{Value: "minutes", Label: "分"},
	{Value: "hours", Label: "時間"},
	{Value: "days", Label: "日"},
	{Value: "weeks", Label: "週"},
	{Value: "months", Label: "月"},
}
