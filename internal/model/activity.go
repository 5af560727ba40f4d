package model

import "time"

// Weight は体重の記録を表す。
type Weight struct {
	Record
	Weight float64
	Date   time.Time
}

// Meal は食事の記録を表す。
type Meal struct {
	Record
	Food string
	Slot string // breakfast / lunch / dinner
	Date time.Time
	Hour string
}

// MealSlots は食事区分の選択肢。
var MealSlots = []Choice{
	{Value: "breakfast", Label: "朝食"},
	{Value: "lunch", Label: "昼食"},
	{Value: "dinner", Label: "夕食"},
}

// Exercise は運動の記録を表す。
type Exercise struct {
	Record
	Sports   string
	Comment  string
	Duration int // 分
	Date     time.Time
	Hour     string
}
