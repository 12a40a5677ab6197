package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCorpus(t *testing.T) {
	topics, err := Default()
	require.NoError(t, err)
	require.Len(t, topics, 9)
	require.Equal(t, "Fundamental Rights", topics[0].Title)
	require.Contains(t, topics[0].Content, "Right to Equality (Article 14-18)")
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse(strings.NewReader(`
topics:
  - {title: A, content: x}
  - {title: A, content: y}
`))
	require.Error(t, err)
}

func TestParseRejectsMissingContent(t *testing.T) {
	_, err := Parse(strings.NewReader("topics:\n  - {title: A}\n"))
	require.Error(t, err)
}
