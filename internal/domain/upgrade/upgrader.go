package upgrade

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/frames"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/shared/id"
)

// SandboxPolicy is the fixed capability set given to every upgraded frame
const SandboxPolicy = "allow-scripts"

// Registrar records frames produced on a page
type Registrar interface {
	Register(f frames.Frame) frames.Frame
}

// Result summarizes one upgrade pass
type Result struct {
	Upgraded int            // <object> elements replaced
	Frames   []frames.Frame // frames registered, upgraded ones first, then pre-existing
}

// Upgrader replaces legacy embeds with sandboxed frames
type Upgrader struct {
	registrar Registrar
	logger    *zap.Logger
	metrics   *monitoring.Metrics
}

// New creates an upgrader that only rewrites markup
func New(logger *zap.Logger) *Upgrader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Upgrader{logger: logger}
}

// WithRegistrar names and registers every frame on upgraded pages
func (u *Upgrader) WithRegistrar(r Registrar) *Upgrader {
	u.registrar = r
	return u
}

// WithMetrics adds metrics tracking to the upgrader
func (u *Upgrader) WithMetrics(metrics *monitoring.Metrics) *Upgrader {
	u.metrics = metrics
	return u
}

// Upgrade parses an HTML page from r, rewrites it and renders it to w
func (u *Upgrader) Upgrade(w io.Writer, r io.Reader, page string) (Result, error) {
	root, err := html.Parse(r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse page %q: %w", page, err)
	}

	res := u.UpgradeDocument(goquery.NewDocumentFromNode(root), page)

	if err := html.Render(w, root); err != nil {
		return res, fmt.Errorf("failed to render page %q: %w", page, err)
	}
	return res, nil
}

// UpgradeDocument rewrites doc in place
func (u *Upgrader) UpgradeDocument(doc *goquery.Document, page string) Result {
	var res Result

	doc.Find("object").Each(func(_ int, obj *goquery.Selection) {
		iframe := newFrameNode(obj)

		if u.registrar != nil {
			f := u.registrar.Register(frames.Frame{
				ID:      id.NewFrameID(),
				Page:    page,
				Src:     attr(iframe, "src"),
				Class:   attr(iframe, "class"),
				Sandbox: SandboxPolicy,
			})
			iframe.Attr = append(iframe.Attr, html.Attribute{Key: "name", Val: string(f.ID)})
			res.Frames = append(res.Frames, f)
		}

		obj.ReplaceWithNodes(iframe)
		res.Upgraded++
	})

	// after replacement, so fallback content dropped with its object is never registered
	if u.registrar != nil && len(doc.Nodes) > 0 {
		res.Frames = append(res.Frames, u.registerExisting(doc.Nodes[0], page)...)
	}

	if u.metrics != nil {
		u.metrics.AddFramesUpgraded(res.Upgraded)
	}
	u.logger.Debug("page upgraded",
		zap.String("page", page),
		zap.Int("upgraded", res.Upgraded),
		zap.Int("registered", len(res.Frames)),
	)
	return res
}

// newFrameNode builds the sandboxed iframe standing in for obj
func newFrameNode(obj *goquery.Selection) *html.Node {
	data, _ := obj.Attr("data")

	node := &html.Node{
		Type:     html.ElementNode,
		Data:     "iframe",
		DataAtom: atom.Iframe,
		Attr: []html.Attribute{
			{Key: "sandbox", Val: SandboxPolicy},
			{Key: "src", Val: FrameSource(data, QueryString(obj))},
		},
	}
	if class, ok := obj.Attr("class"); ok {
		node.Attr = append(node.Attr, html.Attribute{Key: "class", Val: class})
	}
	return node
}

// registerExisting registers unnamed iframes already on the page.
// Named iframes belong to the page author and are left alone.
func (u *Upgrader) registerExisting(root *html.Node, page string) []frames.Frame {
	var out []frames.Frame
	for _, node := range htmlquery.Find(root, "//iframe[not(@name)]") {
		sandbox, _ := attrOK(node, "sandbox")
		f := u.registrar.Register(frames.Frame{
			ID:      id.NewFrameID(),
			Page:    page,
			Src:     htmlquery.SelectAttr(node, "src"),
			Class:   htmlquery.SelectAttr(node, "class"),
			Sandbox: sandbox,
		})
		node.Attr = append(node.Attr, html.Attribute{Key: "name", Val: string(f.ID)})
		out = append(out, f)
	}
	return out
}

func attr(n *html.Node, key string) string {
	v, _ := attrOK(n, key)
	return v
}

func attrOK(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
