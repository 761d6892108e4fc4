package escrowd

import (
	"fmt"
	"strings"
)

// Query modifiers understood by the bucket query handlers. The modifier is
// the part of the ABCI query path after "?".
const (
	// KeyQueryMod looks up a single key.
	KeyQueryMod = ""
	// PrefixQueryMod returns every entry with the given key prefix.
	PrefixQueryMod = "prefix"
)

// Model is a single key value entry returned by a query.
type Model struct {
	Key   []byte
	Value []byte
}

// Pair returns the entry of given key and value.
func Pair(key, value []byte) Model {
	return Model{Key: key, Value: value}
}

// QueryHandler answers ABCI queries using the committed state.
type QueryHandler interface {
	Query(db ReadOnlyKVStore, mod string, data []byte) ([]Model, error)
}

// QueryRouter maps query paths to their handlers. Every path is stored with
// a single leading slash.
type QueryRouter struct {
	routes map[string]QueryHandler
}

func NewQueryRouter() QueryRouter {
	return QueryRouter{routes: make(map[string]QueryHandler)}
}

// RegisterAll lets every extension add its handlers.
func (r QueryRouter) RegisterAll(regs ...func(QueryRouter)) {
	for _, register := range regs {
		register(r)
	}
}

// Register binds h to the path. Binding a path twice is a programming error
// and panics.
func (r QueryRouter) Register(path string, h QueryHandler) {
	path = "/" + strings.TrimLeft(path, "/")
	if _, ok := r.routes[path]; ok {
		panic(fmt.Sprintf("query path %s already registered", path))
	}
	r.routes[path] = h
}

// Handler returns the handler bound to the path or nil.
func (r QueryRouter) Handler(path string) QueryHandler {
	return r.routes[path]
}
