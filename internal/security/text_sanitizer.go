// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はフォームから受け取った自由記述テキスト（コメント、質問など）から
// HTMLマークアップを取り除く。bluemondayのStrictPolicyを使用し、
// 全てのタグと属性を除去してテキストのみを残す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は自由記述テキストのサニタイズ機能のインターフェースを定義する。
type Sanitizer interface {
	// Sanitize はテキストから全てのHTMLタグを除去し、前後の空白を取り除いて返す。
	// 表示時にhtml/templateでエスケープされるため、実体参照はデコードして返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(text string) string
}

// TextSanitizer はSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので、1つのインスタンスを共有してよい。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はテキストからHTMLを除去する。
func (s *TextSanitizer) Sanitize(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

var _ Sanitizer = (*TextSanitizer)(nil)
