// Package people is the sample People collection: person documents partitioned by
// family name, the Person entity callers see, and the specifications over both.
package people

import (
	"github.com/nimburion/documentdb/pkg/observability/logger"
	"github.com/nimburion/documentdb/pkg/repository/document"
)

// Container is the default collection or table name.
const Container = "people"

// PartitionKeyField is the stored field partitioning the collection.
const PartitionKeyField = "familyName"

// Document is a person as stored.
type Document struct {
	ID         string `json:"id" bson:"id"`
	FirstName  string `json:"firstName" bson:"firstName"`
	MiddleName string `json:"middleName,omitempty" bson:"middleName,omitempty"`
	FamilyName string `json:"familyName" bson:"familyName"`
}

// DocumentID implements document.Document.
func (d Document) DocumentID() string { return d.ID }

// PartitionKey implements document.Document.
func (d Document) PartitionKey() string { return d.FamilyName }

// Person is the entity projection of a Document.
type Person struct {
	ID         string `json:"id" yaml:"id"`
	FirstName  string `json:"firstName" yaml:"firstName"`
	MiddleName string `json:"middleName,omitempty" yaml:"middleName,omitempty"`
	FamilyName string `json:"familyName" yaml:"familyName"`
}

// NewMapper maps documents to people. ID is taken from DocumentID so a renamed
// document field does not silently break the projection.
func NewMapper() *document.FieldMapper[Document, Person] {
	return document.MustFieldMapper[Document, Person]().
		ForMember("ID", func(d Document) any { return d.DocumentID() })
}

// Repository is the people repository.
type Repository = document.GenericRepository[Document, Person]

// NewRepository creates a people repository over connector.
func NewRepository(connector document.Connector[Document], log logger.Logger, opts ...document.Option) (*Repository, error) {
	opts = append([]document.Option{document.WithLogger(log), document.WithContainer(Container)}, opts...)
	return document.New[Document, Person](connector, NewMapper(), opts...)
}
