package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	tele "gopkg.in/telebot.v4"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		data, unique, payload string
	}{
		{"\fverify_membership|42", "verify_membership", "42"},
		{"\fverify_membership", "verify_membership", ""},
		{"plain", "plain", ""},
		{"\fkey|a|b", "key", "a|b"},
		{"", "", ""},
	}
	for _, tc := range cases {
		unique, payload := Decode(tc.data)
		assert.Equal(t, tc.unique, unique, tc.data)
		assert.Equal(t, tc.payload, payload, tc.data)
	}
}

func TestSplit(t *testing.T) {
	unique, payload := Split(&tele.Callback{Unique: "verify_membership", Data: "x"})
	assert.Equal(t, "verify_membership", unique)
	assert.Equal(t, "x", payload)

	unique, _ = Split(&tele.Callback{Data: "\fverify_membership"})
	assert.Equal(t, "verify_membership", unique)

	unique, payload = Split(nil)
	assert.Empty(t, unique)
	assert.Empty(t, payload)
}
