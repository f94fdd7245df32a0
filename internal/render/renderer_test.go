package render

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inkpress/scribe/internal/post"
)

func mkPost(t *testing.T, slug, body string) *post.Post {
	t.Helper()
	return &post.Post{
		Slug:         slug,
		OriginalSlug: slug,
		SourcePath:   "posts/" + slug + ".md",
		Title:        slug,
		Date:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Body:         []byte(body),
	}
}

func TestRenderAll_ConvertsMarkdownToHTML(t *testing.T) {
	p := mkPost(t, "hello", "# Heading\n\nSome *emphasis*.\n")

	r := New("", 2)
	rendered, _, failed := r.RenderAll(context.Background(), []*post.Post{p})
	require.Empty(t, failed)
	require.Len(t, rendered, 1)
	require.Contains(t, string(p.HTML), "<h1>Heading</h1>")
	require.Contains(t, string(p.HTML), "<em>emphasis</em>")
}

func TestRenderAll_Deterministic(t *testing.T) {
	body := "# H\n\nA [link](other) and `code`.\n"
	a := mkPost(t, "a", body)
	b := mkPost(t, "a", body)

	r := New("", 1)
	r.RenderAll(context.Background(), []*post.Post{a, mkPost(t, "other", "x\n")})
	r.RenderAll(context.Background(), []*post.Post{b, mkPost(t, "other", "x\n")})
	require.Equal(t, a.HTML, b.HTML)
}

func TestRenderAll_ExtractsOutboundSlugs(t *testing.T) {
	a := mkPost(t, "a", "See [b](b) and [external](https://example.com/b).\n")
	b := mkPost(t, "b", "No links here.\n")

	r := New("", 2)
	_, outbound, failed := r.RenderAll(context.Background(), []*post.Post{a, b})
	require.Empty(t, failed)
	require.True(t, outbound["a"].Has("b"))
	require.Len(t, outbound["a"], 1)
	require.Empty(t, outbound["b"])
}

func TestRenderAll_LinkVariantsResolveToSameSlug(t *testing.T) {
	body := "[1](b) [2](./b) [3](../b/) [4](/b.md) [5](b/)\n"
	a := mkPost(t, "a", body)
	b := mkPost(t, "b", "x\n")

	r := New("", 1)
	_, outbound, _ := r.RenderAll(context.Background(), []*post.Post{a, b})
	require.Equal(t, 1, len(outbound["a"]))
	require.True(t, outbound["a"].Has("b"))
}

func TestRenderAll_SelfReferenceExcluded(t *testing.T) {
	a := mkPost(t, "a", "Link to [myself](a).\n")

	r := New("", 1)
	_, outbound, _ := r.RenderAll(context.Background(), []*post.Post{a})
	require.Empty(t, outbound["a"])
}

func TestRenderAll_DanglingReferenceDropped(t *testing.T) {
	a := mkPost(t, "a", "Link to [ghost](does-not-exist).\n")

	r := New("", 1)
	_, outbound, _ := r.RenderAll(context.Background(), []*post.Post{a})
	require.Empty(t, outbound["a"])
}

func TestRenderAll_SameHostAbsoluteLinkIsInternal(t *testing.T) {
	a := mkPost(t, "a", "[b](https://blog.example/b/) [other](https://elsewhere.example/b/)\n")
	b := mkPost(t, "b", "x\n")

	r := New("https://blog.example", 1)
	_, outbound, _ := r.RenderAll(context.Background(), []*post.Post{a, b})
	require.True(t, outbound["a"].Has("b"))
	require.Len(t, outbound["a"], 1)
}

func TestRenderAll_CanonicalizesInternalHrefs(t *testing.T) {
	a := mkPost(t, "a", "See [B Post](B_Post.md).\n")
	// Authored link uses the original filename; output should use the slug.
	b := mkPost(t, "b-post", "x\n")
	b.OriginalSlug = "B_Post"

	r := New("", 1)
	r.RenderAll(context.Background(), []*post.Post{a, b})
	require.Contains(t, string(a.HTML), `href="../b-post/"`)
}

func TestRenderAll_SetsFirstLetter(t *testing.T) {
	a := mkPost(t, "a", "welcome to the blog.\n")
	r := New("", 1)
	r.RenderAll(context.Background(), []*post.Post{a})
	require.Equal(t, 'W', a.FirstLetter)
}

func TestRenderAll_NoAlphabeticFirstParagraph_FirstLetterZero(t *testing.T) {
	a := mkPost(t, "a", "123 456\n")
	r := New("", 1)
	r.RenderAll(context.Background(), []*post.Post{a})
	require.Equal(t, rune(0), a.FirstLetter)
}

func TestRewriteInternalLinks_LeavesUnresolvedHrefsIntact(t *testing.T) {
	in := []byte(`<p><a href="https://example.com/x">x</a> <a href="b">b</a></p>`)
	out := rewriteInternalLinks(in, func(href string) (string, bool) {
		if href == "b" {
			return "../b/", true
		}
		return "", false
	})
	require.Equal(t, `<p><a href="https://example.com/x">x</a> <a href="../b/">b</a></p>`, string(out))
}
