package spell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "role with escaped space", in: "이것은 :func:`foo`\\ 입니다", want: "이것은 foo 입니다"},
		{name: "domain role", in: ":py:class:`dict` 객체", want: "dict 객체"},
		{name: "literal", in: "``None`` 을 돌려줍니다", want: "None 을 돌려줍니다"},
		{name: "named reference", in: "`파이썬 <https://python.org>`_ 을 보세요", want: "파이썬 <https://python.org> 을 보세요"},
		{name: "anonymous reference", in: "`여기`__", want: "여기"},
		{name: "strong and emphasis", in: "**굵게** 와 *기울임*", want: "굵게 와 기울임"},
		{name: "escaped emphasis", in: "*args*\\ 는", want: "args 는"},
		{name: "plain text", in: "그냥 문장입니다.", want: "그냥 문장입니다."},
		{name: "unbalanced markup", in: "a * b 와 `열린 따옴표", want: "a * b 와 `열린 따옴표"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, Sanitize(got), "sanitizing twice changes nothing")
		})
	}
}
