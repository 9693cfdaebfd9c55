package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "secret1", false},
		{"Exactly Min Length", "abcde1", false},
		{"Too Short", "abc1", true},
		{"Exactly Max Length", strings.Repeat("a", 71) + "1", false},
		{"Too Long", strings.Repeat("a", 72) + "1", true},
		{"Too Long In Bytes", strings.Repeat("é", 36) + "1", true},
		{"No Digit", "secretpass", true},
		{"No Lower", "SECRET123", true},
		{"Upper Not Required", "secret12", false},
		{"Unicode Lower", "ångström9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"poet@example.com", false},
		{"first.last+tag@sub.example.org", false},
		{"", true},
		{"no-at-sign", true},
		{"missing@tld", true},
		{strings.Repeat("a", 250) + "@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, ValidateEmail(tt.email) != nil)
		})
	}
}

func TestValidateDisplayName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateDisplayName("Emily D."))
	assert.NoError(t, ValidateDisplayName(strings.Repeat("é", 100)))
	assert.Error(t, ValidateDisplayName("   "))
	assert.Error(t, ValidateDisplayName(strings.Repeat("x", 101)))
}

func TestValidatePoem(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidatePoemTitle("Ozymandias"))
	assert.NoError(t, ValidatePoemTitle(strings.Repeat("t", 200)))
	assert.Error(t, ValidatePoemTitle(""))
	assert.Error(t, ValidatePoemTitle(strings.Repeat("t", 201)))

	assert.NoError(t, ValidatePoemContent("<p>I met a traveller</p>"))
	assert.Error(t, ValidatePoemContent(" \n"))
}
