// Package pagination は一覧表示のページ分割を提供する。
package pagination

import (
	"errors"
	"strconv"
	"strings"
)

// Page は解決済みのページとメタ情報を表す。
type Page[T any] struct {
	Items    []T
	Number   int // 1始まりの現在ページ
	NumPages int // 総ページ数（空の集合でも1）
	Count    int // 全件数
	PerPage  int
}

// HasNext は次のページが存在するかどうかを返す。
func (p Page[T]) HasNext() bool {
	return p.Number < p.NumPages
}

// HasPrevious は前のページが存在するかどうかを返す。
func (p Page[T]) HasPrevious() bool {
	return p.Number > 1
}

// NextNumber は次のページ番号を返す。次のページが無い場合は現在ページを返す。
func (p Page[T]) NextNumber() int {
	if p.HasNext() {
		return p.Number + 1
	}
	return p.Number
}

// PreviousNumber は前のページ番号を返す。前のページが無い場合は現在ページを返す。
func (p Page[T]) PreviousNumber() int {
	if p.HasPrevious() {
		return p.Number - 1
	}
	return p.Number
}

// StartIndex は現在ページ先頭要素の1始まりの通し番号を返す。空の場合は0。
func (p Page[T]) StartIndex() int {
	if p.Count == 0 {
		return 0
	}
	return (p.Number-1)*p.PerPage + 1
}

// Paginate はitemsをperPage件ずつに分割し、tokenが指すページを返す。
//
// tokenの解決規則:
//   - 空、数値でない、0以下 → 1ページ目
//   - 最終ページより大きい（桁あふれを含む） → 最終ページ
//
// どの入力に対してもエラーを返さず、必ず有効なページを返す。
// perPageが1未満の場合は1として扱う。
func Paginate[T any](items []T, perPage int, token string) Page[T] {
	if perPage < 1 {
		perPage = 1
	}

	count := len(items)
	numPages := (count + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}

	number := ResolvePage(token, numPages)

	start := (number - 1) * perPage
	end := start + perPage
	if end > count {
		end = count
	}

	return Page[T]{
		Items:    items[start:end],
		Number:   number,
		NumPages: numPages,
		Count:    count,
		PerPage:  perPage,
	}
}

// ResolvePage はページトークンを1..numPagesの範囲のページ番号に解決する。
func ResolvePage(token string, numPages int) int {
	if numPages < 1 {
		numPages = 1
	}

	n, err := strconv.Atoi(strings.TrimSpace(token))
	if errors.Is(err, strconv.ErrRange) && n > 0 {
		// 桁あふれした正の数は最終ページを超えている
		return numPages
	}
	if err != nil || n < 1 {
		return 1
	}
	if n > numPages {
		return numPages
	}
	return n
}
