package pybridge

import (
	"path/filepath"

	"github.com/src-d/enry/v2"
)

// languagePython is the linguist name enry reports for Python sources.
const languagePython = "Python"

// DetectLanguage returns the language enry detects for a file, or "".
func DetectLanguage(name string, content []byte) string {
	if enry.IsBinary(content) {
		return ""
	}

	return enry.GetLanguage(filepath.Base(name), content)
}

// IsPython reports whether the file looks like Python source, by extension,
// shebang or content.
func IsPython(name string, content []byte) bool {
	return DetectLanguage(name, content) == languagePython
}
