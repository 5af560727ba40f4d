package view

import "github.com/hitoshi/diabetes/internal/model"

// Layout は全ページ共通の描画データ。
type Layout struct {
	Title     string
	CSRFToken string
	LoggedIn  bool
	Nav       []NavLink
}

// NavLink はナビゲーションのリンク。
type NavLink struct {
	Label  string
	Href   string
	Active bool
}

// Field はフォームの入力欄1つ分の描画データ。
type Field struct {
	Name     string
	Label    string
	Type     string // text, textarea, number, date, time, select
	Step     string // number の刻み幅
	Required bool
	Choices  []model.Choice
	Value    string
	Error    string
}

// Row は一覧表の1行。
type Row struct {
	ID    string
	Cells []string
}

// Pager はページ送りの描画データ。
type Pager struct {
	Number      int
	NumPages    int
	Count       int
	HasNext     bool
	HasPrevious bool
	Next        int
	Previous    int
}

// FormSet は子フォームセットの描画データ。
type FormSet struct {
	Prefix       string
	TotalForms   int
	InitialForms int
	Error        string
	Rows         []FormSetRow
}

// FormSetRow は子フォームセットの1行。
type FormSetRow struct {
	Index  int
	ID     string
	Delete bool
	Fields []Field
}

// EntityPage は記録の入力フォームと一覧を1画面に表示するページ。
type EntityPage struct {
	Layout
	Heading    string
	FormAction string
	Editing    bool
	CancelHref string
	Fields     []Field
	Details    *FormSet
	Columns    []string
	Rows       []Row
	EditBase   string
	DeleteBase string
	Pager      Pager
	ShowChart  bool
}

// ConfirmPage は削除確認ページ。
type ConfirmPage struct {
	Layout
	Summary    string
	FormAction string
	CancelHref string
}

// ErrorPage は404/500などのエラーページ。
type ErrorPage struct {
	Layout
	Status  int
	Message string
}
