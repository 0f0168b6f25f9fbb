package derive

import "github.com/tordrt/autogql/internal/inflect"

// SimplifyPlugin switches to the shorter inflection: users, user(id), author, posts
type SimplifyPlugin struct{}

func (SimplifyPlugin) Name() string { return "simplify-inflector" }

func (SimplifyPlugin) Inflector(inflect.Inflector) inflect.Inflector {
	return inflect.Simplified{}
}
