package pagination

// Edge pairs a node with the cursor that resumes the page just after it.
type Edge[T any] struct {
	Node   T      `json:"node"`
	Cursor string `json:"cursor"`
}

// PageInfo carries pagination state for a connection. HasPreviousPage
// reports whether the page was fetched from a supplied cursor rather than
// the start of the sequence.
type PageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor,omitempty"`
	EndCursor       string `json:"endCursor,omitempty"`
}

// Connection is the paged result shape returned by list queries.
type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// Build assembles a connection from the nodes of one page. cursorFor maps a
// node to its resume position. hasMore is what the storage layer learned by
// fetching one row past the requested page size; hasPrevious is whether the
// caller resumed from a cursor.
func Build[T any](nodes []T, hasMore, hasPrevious bool, cursorFor func(T) Cursor) Connection[T] {
	conn := Connection[T]{Edges: make([]Edge[T], len(nodes))}
	for i, n := range nodes {
		conn.Edges[i] = Edge[T]{Node: n, Cursor: Encode(cursorFor(n))}
	}
	conn.PageInfo.HasNextPage = hasMore
	conn.PageInfo.HasPreviousPage = hasPrevious
	if len(conn.Edges) > 0 {
		conn.PageInfo.StartCursor = conn.Edges[0].Cursor
		conn.PageInfo.EndCursor = conn.Edges[len(conn.Edges)-1].Cursor
	}
	return conn
}
