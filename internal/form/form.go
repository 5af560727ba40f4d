// Package form はHTMLフォーム入力の取り出しとバリデーションを提供する。
//
// 各取り出しメソッドは値の変換に失敗するとフィールド単位のエラーを記録し、
// ゼロ値を返す。全フィールドを処理した後にValidで結果を判定する。
package form

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/diabetes/internal/model"
	"github.com/hitoshi/diabetes/internal/security"
)

// エラーメッセージ
const (
	msgRequired = "この項目は必須です。"
	msgDate     = "日付は YYYY-MM-DD 形式で入力してください。"
	msgHour     = "時刻は HH:MM:SS 形式で入力してください。"
	msgNumber   = "数値を入力してください。"
	msgInteger  = "整数を入力してください。"
	msgPositive = "0より大きい値を入力してください。"
	msgNonNeg   = "0以上の値を入力してください。"
	msgMax      = "%s以下の値を入力してください。"
	msgChoice   = "選択肢から選んでください。"
)

// Errors はフィールド名ごとのエラーメッセージ。
type Errors map[string][]string

// Add はフィールドにエラーメッセージを追加する。
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Get はフィールドの最初のエラーメッセージを返す。無ければ空文字列。
func (e Errors) Get(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Form は送信されたフォーム値とバリデーション結果を保持する。
type Form struct {
	values    url.Values
	sanitizer security.Sanitizer
	Errors    Errors
}

// New はFormを生成する。sanitizerがnilの場合、テキストはトリムのみ行う。
func New(values url.Values, sanitizer security.Sanitizer) *Form {
	if values == nil {
		values = url.Values{}
	}
	return &Form{
		values:    values,
		sanitizer: sanitizer,
		Errors:    Errors{},
	}
}

// Valid はエラーが1件も記録されていないかどうかを返す。
func (f *Form) Valid() bool {
	return len(f.Errors) == 0
}

// Raw はフィールドの値を前後の空白を除いて返す。
func (f *Form) Raw(field string) string {
	return strings.TrimSpace(f.values.Get(field))
}

// Has はフィールドが空でない値で送信されたかどうかを返す。
func (f *Form) Has(field string) bool {
	return f.Raw(field) != ""
}

// Values は再表示用に各フィールドの送信値を返す。
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.values))
	for k := range f.values {
		out[k] = f.values.Get(k)
	}
	return out
}

// Text は自由記述テキストをサニタイズして返す。空は許容する。
func (f *Form) Text(field string) string {
	v := f.Raw(field)
	if f.sanitizer != nil {
		v = f.sanitizer.Sanitize(v)
	}
	return v
}

// RequiredText は必須の自由記述テキストを返す。
// サニタイズ後に空になった場合も必須エラーとする。
func (f *Form) RequiredText(field string) string {
	v := f.Text(field)
	if v == "" {
		f.Errors.Add(field, msgRequired)
	}
	return v
}

// Date は必須の日付（YYYY-MM-DD）を返す。
func (f *Form) Date(field string) time.Time {
	v := f.Raw(field)
	if v == "" {
		f.Errors.Add(field, msgRequired)
		return time.Time{}
	}
	d, err := time.Parse(model.DateLayout, v)
	if err != nil {
		f.Errors.Add(field, msgDate)
		return time.Time{}
	}
	return d
}

// OptionalDate は任意の日付を返す。未入力の場合はnil。
func (f *Form) OptionalDate(field string) *time.Time {
	if !f.Has(field) {
		return nil
	}
	d := f.Date(field)
	if d.IsZero() {
		return nil
	}
	return &d
}

// Hour は必須の時刻を HH:MM:SS に正規化して返す。HH:MM も受け付ける。
func (f *Form) Hour(field string) string {
	v := f.Raw(field)
	if v == "" {
		f.Errors.Add(field, msgRequired)
		return ""
	}
	for _, layout := range []string{model.HourLayout, "15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(model.HourLayout)
		}
	}
	f.Errors.Add(field, msgHour)
	return ""
}

// Float は必須の数値を返す。小数点にカンマも受け付ける。
func (f *Form) Float(field string) float64 {
	v := f.Raw(field)
	if v == "" {
		f.Errors.Add(field, msgRequired)
		return 0
	}
	n, ok := parseFloat(v)
	if !ok {
		f.Errors.Add(field, msgNumber)
		return 0
	}
	return n
}

// OptionalFloat は任意の数値を返す。未入力の場合はnil。
func (f *Form) OptionalFloat(field string) *float64 {
	if !f.Has(field) {
		return nil
	}
	n, ok := parseFloat(f.Raw(field))
	if !ok {
		f.Errors.Add(field, msgNumber)
		return nil
	}
	return &n
}

// Int は整数を返す。未入力の場合は0。
func (f *Form) Int(field string) int {
	v := f.Raw(field)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f.Errors.Add(field, msgInteger)
		return 0
	}
	return n
}

// Positive は値が0より大きいことを検証する。
func (f *Form) Positive(field string, v float64) {
	if v <= 0 && len(f.Errors[field]) == 0 {
		f.Errors.Add(field, msgPositive)
	}
}

// NonNegative は値が0以上であることを検証する。
func (f *Form) NonNegative(field string, v float64) {
	if v < 0 && len(f.Errors[field]) == 0 {
		f.Errors.Add(field, msgNonNeg)
	}
}

// Max は値がmax以下であることを検証する。
func (f *Form) Max(field string, v, max float64) {
	if v > max && len(f.Errors[field]) == 0 {
		f.Errors.Add(field, fmt.Sprintf(msgMax, strconv.FormatFloat(max, 'f', -1, 64)))
	}
}

// Choice は選択肢のいずれかである必須値を返す。
func (f *Form) Choice(field string, choices []model.Choice) string {
	v := f.Raw(field)
	if v == "" {
		f.Errors.Add(field, msgRequired)
		return ""
	}
	for _, c := range choices {
		if c.Value == v {
			return v
		}
	}
	f.Errors.Add(field, msgChoice)
	return ""
}

// OptionalChoice は選択肢のいずれかである任意値を返す。未入力の場合は空文字列。
func (f *Form) OptionalChoice(field string, choices []model.Choice) string {
	if !f.Has(field) {
		return ""
	}
	return f.Choice(field, choices)
}

func parseFloat(v string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	// "inf" や "NaN" も ParseFloat は受け付けるため有限値に限る
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
