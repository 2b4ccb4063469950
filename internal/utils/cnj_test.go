package utils

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCaseNumber_CanonicalForm(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"00026885420248160136", "0002688-54.2024.8.16.0136"},
		{"0002688-54.2024.8.16.0136", "0002688-54.2024.8.16.0136"},
		{" 0002688 54 2024 8 16 0136", "0002688-54.2024.8.16.0136"},
		{"nº 1234567/47-2023.8.26/0100", "1234567-47.2023.8.26.0100"},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.True(t, IsValidCaseNumber(tc.raw))

			n, err := NormalizeCaseNumber(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, n.String())
			assert.Len(t, n.Digits(), CaseNumberDigits)
		})
	}
}

func TestNormalizeCaseNumber_RejectsWrongLength(t *testing.T) {
	for _, raw := range []string{
		"",
		"abc",
		"0002688-54.2024.8.16.013",
		"000268854202481601361",
		strings.Repeat("9", 19),
	} {
		assert.False(t, IsValidCaseNumber(raw), raw)

		_, err := NormalizeCaseNumber(raw)
		assert.ErrorIs(t, err, ErrInvalidCaseNumber, raw)
	}
}

func TestNormalizeCaseNumber_Idempotent(t *testing.T) {
	for _, raw := range []string{
		"00026885420248160136",
		"1234567-47.2023.8.26.0100",
		"99999999999999999999",
	} {
		first, err := NormalizeCaseNumber(raw)
		require.NoError(t, err)

		second, err := NormalizeCaseNumber(first.String())
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, first.String(), second.String())
	}
}

func TestCaseNumber_Parts(t *testing.T) {
	n, err := NormalizeCaseNumber("0002688-54.2024.8.16.0136")
	require.NoError(t, err)

	assert.Equal(t, CaseNumberParts{
		Sequential:  "0002688",
		CheckDigits: "54",
		Year:        "2024",
		Segment:     "8",
		Court:       "16",
		Origin:      "0136",
	}, n.Parts())
}

func TestCaseNumber_ZeroValue(t *testing.T) {
	var n CaseNumber
	assert.True(t, n.IsZero())
	assert.Equal(t, "", n.String())
	assert.False(t, CheckDigitsValid(n))
}

func TestCheckDigitsValid(t *testing.T) {
	valid, err := NormalizeCaseNumber("0002688-54.2024.8.16.0136")
	require.NoError(t, err)
	assert.True(t, CheckDigitsValid(valid))

	invalid, err := NormalizeCaseNumber("0002688-55.2024.8.16.0136")
	require.NoError(t, err)
	assert.False(t, CheckDigitsValid(invalid))
}

func TestCaseNumber_JSON(t *testing.T) {
	var payload struct {
		Number CaseNumber `json:"number"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"number":"00026885420248160136"}`), &payload))
	assert.Equal(t, "0002688-54.2024.8.16.0136", payload.Number.String())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"number":"0002688-54.2024.8.16.0136"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"number":"123"}`), &payload))
}
