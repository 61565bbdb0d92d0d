package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURIParseAbsolute(t *testing.T) {
	var u URI
	u.Parse(nil, []byte("https://Example.com:8443/path/to?x=1"))

	assert.Equal(t, []byte("https"), u.Scheme())
	assert.Equal(t, []byte("example.com:8443"), u.Host())
	assert.Equal(t, []byte("example.com"), u.Hostname())
	assert.Equal(t, []byte("8443"), u.Port())
	assert.Equal(t, []byte("/path/to"), u.Path())
	assert.Equal(t, []byte("x=1"), u.QueryString())
	assert.Equal(t, "https://example.com:8443/path/to?x=1", u.String())
}

func TestURIParseOrigin(t *testing.T) {
	var u URI
	u.Parse([]byte("example.com"), []byte("/a/b?q=2"))

	assert.Equal(t, []byte("http"), u.Scheme())
	assert.Equal(t, []byte("example.com"), u.Host())
	assert.Equal(t, []byte("/a/b"), u.Path())
	assert.Equal(t, []byte("q=2"), u.QueryString())
	assert.Equal(t, []byte("/a/b?q=2"), u.RequestURI())
}

func TestURIParseHostOnly(t *testing.T) {
	var u URI
	u.Parse(nil, []byte("http://example.com"))
	assert.Equal(t, []byte("/"), u.Path())
	assert.Equal(t, "http://example.com/", u.String())
}

func TestURIUpdateAbsolute(t *testing.T) {
	var u URI
	u.Update("http://a.com/old")
	u.Update("https://b.com/new")
	assert.Equal(t, "https://b.com/new", u.String())
}

func TestURIUpdateAbsolutePath(t *testing.T) {
	var u URI
	u.Update("http://a.com/dir/page?old=1")
	u.UpdateBytes([]byte("/other"))
	assert.Equal(t, "http://a.com/other", u.String())
}

func TestURIUpdateRelativePath(t *testing.T) {
	var u URI
	u.Update("http://a.com/dir/page")
	u.UpdateBytes([]byte("sibling"))
	assert.Equal(t, "http://a.com/dir/sibling", u.String())

	u.UpdateBytes([]byte("../up"))
	assert.Equal(t, "http://a.com/up", u.String())
}

func TestURIUpdateSchemeRelative(t *testing.T) {
	var u URI
	u.Update("https://a.com/x")
	u.UpdateBytes([]byte("//b.com/y"))
	assert.Equal(t, "https://b.com/y", u.String())
}

func TestURIUpdateEmpty(t *testing.T) {
	var u URI
	u.Update("http://a.com/x")
	u.UpdateBytes(nil)
	assert.Equal(t, "http://a.com/x", u.String())
}

func TestURICopyTo(t *testing.T) {
	var u URI
	u.Update("https://a.com/x?y=1")
	var dst URI
	u.CopyTo(&dst)
	assert.Equal(t, u.String(), dst.String())
}
