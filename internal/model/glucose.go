package model

import "time"

// Glucose は血糖値の測定記録を表す。
type Glucose struct {
	Record
	Moment  string   // 測定タイミング（朝食前など）
	Glucose float64  // 血糖値
	Insulin *float64 // インスリン投与量（任意）
	Comment string
	Date    time.Time
	Hour    string // HH:MM:SS
}

// Moments は測定タイミングの選択肢。
var Moments = []Choice{
	{Value: "before_breakfast", Label: "朝食前"},
	{Value: "after_breakfast", Label: "朝食後"},
	{Value: "before_lunch", Label: "昼食前"},
	{Value: "after_lunch", Label: "昼食後"},
	{Value: "before_dinner", Label: "夕食前"},
	{Value: "after_dinner", Label: "夕食後"},
	{Value: "bedtime", Label: "就寝前"},
	{Value: "night", Label: "夜間"},
}

// Choice はフォームの選択肢を表す。
type Choice struct {
	Value string
	Label string
}

// ChoiceLabel は値に対応するラベルを返す。見つからない場合は値そのものを返す。
func ChoiceLabel(choices []Choice, value string) string {
	for _, c := range choices {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}
