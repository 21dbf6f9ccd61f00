package analysis

import (
	"io"
	"log"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// maxVisBytes caps a fetched pyLDAvis document.
const maxVisBytes = 16 << 20

// PyLDAvis serves the interactive visualization for the result iframe. The
// service returns either the HTML itself or a link to it.
func (h *Handler) PyLDAvis(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	if st.LDA == nil || strings.TrimSpace(st.LDA.Response.PyLDAvisHTML) == "" {
		http.NotFound(w, r)
		return
	}
	doc := strings.TrimSpace(st.LDA.Response.PyLDAvisHTML)

	if !strings.HasPrefix(doc, "<") {
		body, _, err := h.api.Fetch(r.Context(), st.Session(), doc)
		if err != nil {
			log.Printf("fetch pyldavis: %v", err)
			http.Error(w, "visualization unavailable", http.StatusBadGateway)
			return
		}
		raw, err := io.ReadAll(io.LimitReader(body, maxVisBytes))
		body.Close()
		if err != nil {
			log.Printf("read pyldavis: %v", err)
			http.Error(w, "visualization unavailable", http.StatusBadGateway)
			return
		}
		doc = string(raw)
	}

	rebased, err := rebaseLinks(doc, h.api.ResolveURL)
	if err != nil {
		log.Printf("parse pyldavis: %v", err)
		rebased = doc
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Frame-Options", "SAMEORIGIN")
	w.Header().Set("Content-Security-Policy", "sandbox allow-scripts; frame-ancestors 'self'")
	io.WriteString(w, rebased)
}

// rebaseLinks rewrites relative script, stylesheet and image references so
// they load from the analysis service instead of this server.
func rebaseLinks(doc string, resolve func(string) string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for i, a := range n.Attr {
				if (a.Key == "src" || a.Key == "href") && isRelative(a.Val) {
					n.Attr[i].Val = resolve(a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	var b strings.Builder
	if err := html.Render(&b, root); err != nil {
		return "", err
	}
	return b.String(), nil
}

func isRelative(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return false
	}
	if i := strings.Index(ref, ":"); i > 0 && !strings.ContainsAny(ref[:i], "/?#") {
		return false
	}
	return true
}
