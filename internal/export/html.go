package export

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/jonathan/longform-writer/internal/types"
)

// htmlShell wraps the converted body with minimal styling for the preview.
const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { max-width: 48rem; margin: 2rem auto; font-family: Georgia, serif; line-height: 1.6; padding: 0 1rem; }
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 0.3rem 0.6rem; }
blockquote { color: #555; border-left: 3px solid #ccc; margin-left: 0; padding-left: 1rem; }
</style>
</head>
<body>
%s</body>
</html>
`

// HTML renders the assembled document as a standalone HTML preview.
// Tables in supplement bodies need the GFM extension to convert.
func HTML(doc *types.AssembledDocument) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(doc)), &buf); err != nil {
		return "", fmt.Errorf("failed to convert document to HTML: %w", err)
	}
	return fmt.Sprintf(htmlShell, doc.Title, buf.String()), nil
}
