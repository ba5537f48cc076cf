package people

import "github.com/nimburion/documentdb/pkg/specification"

// FirstName matches documents by first name.
func FirstName(name string) specification.Spec[Document] {
	return specification.Where[Document](specification.Eq("firstName", name))
}

// FamilyName matches documents by family name.
func FamilyName(name string) specification.Spec[Document] {
	return specification.Where[Document](specification.Eq("familyName", name))
}

// DocumentByID matches the document with the given id.
func DocumentByID(id string) specification.Spec[Document] {
	return specification.Where[Document](specification.Eq("id", id))
}

// EntityFamilyName matches entities by family name. It only runs in process.
func EntityFamilyName(name string) specification.Spec[Person] {
	return specification.Where[Person](specification.Eq("familyName", name))
}
