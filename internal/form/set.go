package form

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/diabetes/internal/security"
)

// MaxSetForms は1つのフォームセットで受け付ける行数の上限。
const MaxSetForms = 1000

// 管理フィールド名（接頭辞を除く）
const (
	TotalFormsField   = "TOTAL_FORMS"
	InitialFormsField = "INITIAL_FORMS"
	DeleteField       = "DELETE"
	IDField           = "id"
)

const msgManagement = "フォームセットの管理データが不正です。"

// SetRow はフォームセットの1行。Formのフィールド名は接頭辞を含まない。
type SetRow struct {
	*Form
	Index  int
	Delete bool
}

// Blank は行の入力フィールド（id と DELETE を除く）がすべて空かどうかを返す。
func (r *SetRow) Blank() bool {
	for k, vs := range r.values {
		if k == IDField || k == DeleteField {
			continue
		}
		for _, v := range vs {
			if strings.TrimSpace(v) != "" {
				return false
			}
		}
	}
	return true
}

// Set は接頭辞付きで送信された繰り返しフォーム（フォームセット）。
type Set struct {
	Prefix          string
	Rows            []*SetRow
	ManagementError string
}

// FieldName は行番号とフィールド名から送信時の名前を組み立てる。
func FieldName(prefix string, index int, field string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, index, field)
}

// ParseSet は送信値から prefix のフォームセットを取り出す。
// TOTAL_FORMS が欠落または不正な場合は ManagementError を設定し、行は空となる。
func ParseSet(values url.Values, prefix string, sanitizer security.Sanitizer) *Set {
	set := &Set{Prefix: prefix}

	total, err := strconv.Atoi(strings.TrimSpace(values.Get(prefix + "-" + TotalFormsField)))
	if err != nil || total < 0 || total > MaxSetForms {
		set.ManagementError = msgManagement
		return set
	}

	rowPrefixes := make([]string, total)
	rowValues := make([]url.Values, total)
	for i := range total {
		rowPrefixes[i] = fmt.Sprintf("%s-%d-", prefix, i)
		rowValues[i] = url.Values{}
	}
	for key, vs := range values {
		for i, p := range rowPrefixes {
			if name, ok := strings.CutPrefix(key, p); ok && name != "" {
				rowValues[i][name] = vs
				break
			}
		}
	}

	for i := range total {
		row := &SetRow{
			Form:  New(rowValues[i], sanitizer),
			Index: i,
		}
		row.Delete = isChecked(rowValues[i].Get(DeleteField))
		set.Rows = append(set.Rows, row)
	}
	return set
}

// Valid は管理データが正しく、全行にエラーが無いかどうかを返す。
func (s *Set) Valid() bool {
	if s.ManagementError != "" {
		return false
	}
	for _, r := range s.Rows {
		if !r.Valid() {
			return false
		}
	}
	return true
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
