package document

// Repository is a document repository with both read and write sides.
type Repository[D Document, E any] interface {
	QueryRepository[D, E]
	CommandRepository[D, E]
}

// GenericRepository wires a query and a command repository over one connector.
type GenericRepository[D Document, E any] struct {
	*DocumentQueryRepository[D, E]
	*DocumentCommandRepository[D, E]
}

// New creates a full repository over connector.
func New[D Document, E any](connector Connector[D], mapper Mapper[D, E], opts ...Option) (*GenericRepository[D, E], error) {
	queries, err := NewQueryRepository(connector, mapper, opts...)
	if err != nil {
		return nil, err
	}
	commands, err := NewCommandRepository[D, E](connector, mapper, queries, opts...)
	if err != nil {
		return nil, err
	}
	return &GenericRepository[D, E]{
		DocumentQueryRepository:   queries,
		DocumentCommandRepository: commands,
	}, nil
}
