package spell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memCache struct {
	data map[string]string
}

func (m *memCache) Get(ctx context.Context, input string, compute func(context.Context, string) (string, error)) (string, error) {
	if out, ok := m.data[input]; ok {
		return out, nil
	}
	out, err := compute(ctx, input)
	if err != nil {
		return "", err
	}
	if out != "" {
		m.data[input] = out
	}
	return out, nil
}

func correctionPage(input, output, help string) string {
	return fmt.Sprintf(`<table class="tableErrCorrect">
<tr><td>입력 내용</td><td>%s</td></tr>
<tr><td>대치어</td><td>%s</td></tr>
<tr><td>도움말</td><td>%s</td></tr>
</table>`, input, output, help)
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tutorial.po")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const catalog = `msgid ""
msgstr ""
"Language: ko\n"

#, fuzzy
msgid "It's done"
msgstr "됬다"

msgid "Done"
msgstr "됬다"

msgid "Untranslated"
msgstr ""
`

func TestCheckSkipsFuzzyEntries(t *testing.T) {
	var fetched []string
	c := &Checker{
		Cache: &memCache{data: map[string]string{}},
		Fetch: func(_ context.Context, text string) (string, error) {
			fetched = append(fetched, text)
			return correctionPage("됬다", "됐다", "준말"), nil
		},
	}

	po := writeCatalog(t, catalog)
	report := filepath.Join(t.TempDir(), "spell.txt")
	sum, err := c.Check(context.Background(), po, report)
	require.NoError(t, err)

	assert.Equal(t, []string{"됬다"}, fetched)
	assert.Equal(t, Summary{Checked: 1, Flagged: 1, Suggestions: 1}, sum)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, "# tutorial.po:9\n됬다 -> 됐다: 준말\n\n", string(data))
}

func TestCheckSanitizesAndUsesCache(t *testing.T) {
	cache := &memCache{data: map[string]string{
		"foo 됬다": correctionPage("됬다", "대치어 없음", "없음"),
	}}
	c := &Checker{
		Cache: cache,
		Fetch: func(context.Context, string) (string, error) {
			t.Fatal("fetch must not be called on a cache hit")
			return "", nil
		},
	}

	po := writeCatalog(t, "msgid \"x\"\nmsgstr \":func:`foo` 됬다\"\n")
	report := filepath.Join(t.TempDir(), "spell.txt")
	sum, err := c.Check(context.Background(), po, report)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Flagged)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, "# tutorial.po:1\n됬다 -> : \n\n", string(data))
}

func TestCheckContinuesAfterNetworkError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := &Checker{
		Cache: &memCache{data: map[string]string{}},
		Fetch: func(_ context.Context, text string) (string, error) {
			if text == "첫째" {
				return "", networkError("spell request", errors.New("connection refused"))
			}
			return correctionPage(text, "둘째다", ""), nil
		},
		Logger: zap.New(core),
	}

	po := writeCatalog(t, "msgid \"a\"\nmsgstr \"첫째\"\n\nmsgid \"b\"\nmsgstr \"둘째\"\n")
	report := filepath.Join(t.TempDir(), "spell.txt")
	sum, err := c.Check(context.Background(), po, report)
	require.NoError(t, err)
	assert.Equal(t, Summary{Checked: 2, Flagged: 1, Suggestions: 1, Failed: 1}, sum)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "첫째", entry.ContextMap()["text"])

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, "# tutorial.po:4\n둘째 -> 둘째다: \n\n", string(data))
}

func TestCheckAbortsOnMalformedResponse(t *testing.T) {
	c := &Checker{
		Cache: &memCache{data: map[string]string{}},
		Fetch: func(_ context.Context, text string) (string, error) {
			if text == "둘째" {
				return `<table class="tableErrCorrect"><tr><td>대치어</td><td>x</td></tr></table>`, nil
			}
			return correctionPage(text, "첫째다", ""), nil
		},
	}

	po := writeCatalog(t, "msgid \"a\"\nmsgstr \"첫째\"\n\nmsgid \"b\"\nmsgstr \"둘째\"\n\nmsgid \"c\"\nmsgstr \"셋째\"\n")
	report := filepath.Join(t.TempDir(), "spell.txt")
	_, err := c.Check(context.Background(), po, report)
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, KindOther, KindOf(err))

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, "# tutorial.po:1\n첫째 -> 첫째다: \n\n", string(data), "blocks before the failure are kept")
}

func TestCheckRejectsInvalidCatalog(t *testing.T) {
	c := &Checker{Cache: &memCache{data: map[string]string{}}}

	po := writeCatalog(t, "msgid \"a\"\nnot a po line\n")
	report := filepath.Join(t.TempDir(), "spell.txt")
	_, err := c.Check(context.Background(), po, report)
	require.Error(t, err)

	_, statErr := os.Stat(report)
	assert.True(t, os.IsNotExist(statErr), "no report is written for an invalid catalog")
}

func TestCheckPluralFormsAndObsoleteEntries(t *testing.T) {
	var fetched []string
	c := &Checker{
		Cache: &memCache{data: map[string]string{}},
		Fetch: func(_ context.Context, text string) (string, error) {
			fetched = append(fetched, text)
			return correctionPage(text, text+"다", ""), nil
		},
	}

	po := writeCatalog(t, `msgid "file"
msgid_plural "files"
msgstr[0] "파일"
msgstr[1] ""

msgid "folder"
msgid_plural "folders"
msgstr[0] "폴더"
msgstr[1] "폴더들"

#~ msgid "old"
#~ msgstr "옛것"
`)
	report := filepath.Join(t.TempDir(), "spell.txt")
	sum, err := c.Check(context.Background(), po, report)
	require.NoError(t, err)

	assert.Equal(t, []string{"파일", "폴더", "폴더들"}, fetched)
	assert.Equal(t, Summary{Checked: 3, Flagged: 3, Suggestions: 3}, sum)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, "# tutorial.po:1\n파일 -> 파일다: \n\n"+
		"# tutorial.po:6\n폴더 -> 폴더다: \n\n"+
		"# tutorial.po:6\n폴더들 -> 폴더들다: \n\n", string(data))
}
