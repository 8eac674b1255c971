package conversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitExt(t *testing.T) {
	tests := []struct {
		name     string
		wantStem string
		wantExt  string
		wantOK   bool
	}{
		{"report.docx", "report", "docx", true},
		{"Report.DOCX", "Report", "docx", true},
		{"archive.tar.pdf", "archive.tar", "pdf", true},
		{".pdf", "", "pdf", true},
		{"noext", "noext", "", false},
		{"trailing.", "trailing.", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stem, ext, ok := SplitExt(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantExt, ext)
			if ok {
				assert.Equal(t, tt.wantStem, stem)
			}
		})
	}
}

func TestSanitizeStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Report", "My_Report"},
		{"  spaced   out  ", "spaced_out"},
		{"../../etc/passwd", "etc_passwd"},
		{`C:\Users\me\doc`, "C_Users_me_doc"},
		{"résumé", "resume"},
		{"ｆｕｌｌｗｉｄｔｈ", "fullwidth"},
		{"日本語", "file"},
		{"a$b%c", "abc"},
		{"_hidden.", "hidden"},
		{"keep-this_and.this", "keep-this_and.this"},
		{"", "file"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeStem(tt.in))
		})
	}
}
