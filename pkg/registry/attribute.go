package registry

import (
	"encoding/json"
	"fmt"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/selector"
)

// attributeEngine implements the `id`/`data-testid`/`data-test-id`/
// `data-test` engines (and their `:light` siblings): synthesized as a CSS
// `[attr=JSON.stringify(body)]` selector and evaluated through the css
// engine, exactly as spec.md §4.B describes.
type attributeEngine struct {
	attr   string
	pierce bool
}

// QueryAll implements Engine.
func (e attributeEngine) QueryAll(doc *dom.Document, root *dom.Node, part selector.Part) ([]*dom.Node, error) {
	quoted, err := json.Marshal(part.Body)
	if err != nil {
		return nil, err
	}
	css := fmt.Sprintf("[%s=%s]", e.attr, quoted)
	return cssEngine{pierce: e.pierce}.QueryAll(doc, root, selector.Part{Engine: "css", Body: css})
}
