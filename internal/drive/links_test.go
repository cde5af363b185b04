package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLinks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []LinkRef
	}{
		{
			name: "folder link",
			text: "Invoices here: https://drive.google.com/drive/folders/1AbCdEfGhIjKlMnOpQrStUvWxYz012",
			want: []LinkRef{{ID: "1AbCdEfGhIjKlMnOpQrStUvWxYz012", Kind: LinkKindFolder}},
		},
		{
			name: "multi account folder link",
			text: "https://drive.google.com/drive/u/1/folders/1AbCdEfGhIjKlMnOpQrStUvWxYz012",
			want: []LinkRef{{ID: "1AbCdEfGhIjKlMnOpQrStUvWxYz012", Kind: LinkKindFolder}},
		},
		{
			name: "legacy docs folder link",
			text: "https://docs.google.com/folder/d/1AbCdEfGhIjKlMnOpQrStUvWxYz012/edit",
			want: []LinkRef{{ID: "1AbCdEfGhIjKlMnOpQrStUvWxYz012", Kind: LinkKindFolder}},
		},
		{
			name: "open link",
			text: "https://drive.google.com/open?id=1AbCdEfGhIjKlMnOpQrStUvWxYz012",
			want: []LinkRef{{ID: "1AbCdEfGhIjKlMnOpQrStUvWxYz012", Kind: LinkKindFolder}},
		},
		{
			name: "file link",
			text: "https://drive.google.com/file/d/1AbCdEfGhIjKlMnOpQrStUvWxYz012/view",
			want: []LinkRef{{ID: "1AbCdEfGhIjKlMnOpQrStUvWxYz012", Kind: LinkKindFile}},
		},
		{
			name: "bare id as whole input",
			text: "  1AbCdEfGhIjKlMnOpQrStUvWxYz012\n",
			want: []LinkRef{{ID: "1AbCdEfGhIjKlMnOpQrStUvWxYz012", Kind: LinkKindFolder}},
		},
		{
			name: "bare id inside prose does not match",
			text: "Folder id: 1AbCdEfGhIjKlMnOpQrStUvWxYz012 attached",
			want: nil,
		},
		{
			name: "long token in a non-drive url does not match",
			text: "Click here to unsubscribe:\nhttps://news.example.com/u/AbCdEfGhIjKlMnOpQrStUvWxYz0123",
			want: nil,
		},
		{
			name: "duplicate links are reported once",
			text: "https://drive.google.com/drive/folders/1AbCdEfGhIjKlMnOpQrStUvWxYz012 and again https://drive.google.com/open?id=1AbCdEfGhIjKlMnOpQrStUvWxYz012",
			want: []LinkRef{{ID: "1AbCdEfGhIjKlMnOpQrStUvWxYz012", Kind: LinkKindFolder}},
		},
		{
			name: "url match wins over bare id",
			text: "See https://drive.google.com/file/d/1AbCdEfGhIjKlMnOpQrStUvWxYz012 (1AbCdEfGhIjKlMnOpQrStUvWxYz012)",
			want: []LinkRef{{ID: "1AbCdEfGhIjKlMnOpQrStUvWxYz012", Kind: LinkKindFile}},
		},
		{
			name: "multiple distinct links",
			text: `First: https://drive.google.com/drive/folders/1AbCdEfGhIjKlMnOpQrStUvWxYz012
Second: https://drive.google.com/file/d/2ZyXwVuTsRqPoNmLkJiHgFeDcBa987`,
			want: []LinkRef{
				{ID: "1AbCdEfGhIjKlMnOpQrStUvWxYz012", Kind: LinkKindFolder},
				{ID: "2ZyXwVuTsRqPoNmLkJiHgFeDcBa987", Kind: LinkKindFile},
			},
		},
		{
			name: "short words do not match as bare ids",
			text: "Please find the invoice attached to this message, thanks.",
			want: nil,
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractLinks(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileInfoIsFolder(t *testing.T) {
	folder := &FileInfo{MimeType: FolderMimeType}
	assert.True(t, folder.IsFolder())

	pdf := &FileInfo{MimeType: "application/pdf"}
	assert.False(t, pdf.IsFolder())
}
