package redaction

import (
	"github.com/isseis/go-log-redactor/internal/destructure"
	"github.com/isseis/go-log-redactor/internal/logtree"
	"github.com/isseis/go-log-redactor/internal/sensitivity"
	"github.com/isseis/go-log-redactor/internal/typecatalog"
)

type TestObject struct {
	SensitiveData    *string `sensitive:"true"`
	NonSensitiveData string
}

type CollectionItem struct {
	Secret string `sensitive:"true"`
	Label  string
}

type Container struct {
	Name  string
	Items []CollectionItem
	Owner *TestObject
}

type Credentials struct {
	Token string `sensitive:"true"`
}

type Session struct {
	*Credentials
	User string
}

type Login struct {
	Password string
}

type Account struct {
	Name  string
	Login `sensitive:"true"`
}

type AuthError struct {
	Token string `sensitive:"true"`
}

func (e *AuthError) Error() string {
	return "auth failed token=" + e.Token
}

type Plain struct {
	A string
	B int
}

func ptr[T any](v T) *T {
	return &v
}

// testCatalog registers every fixture type.
func testCatalog() *typecatalog.Catalog {
	c := typecatalog.New()
	typecatalog.Register[TestObject](c)
	typecatalog.Register[CollectionItem](c)
	typecatalog.Register[Container](c)
	typecatalog.Register[Session](c)
	typecatalog.Register[Account](c)
	typecatalog.Register[Plain](c)
	return c
}

// destructureWith converts value with the policy installed.
func destructureWith(p *Policy, value any) logtree.Node {
	return destructure.New(
		destructure.WithPolicies(p),
		destructure.WithRegistry(sensitivity.NewRegistry()),
	).CreatePropertyValue(value)
}

// destructureTyped converts value without redaction.
func destructureTyped(value any) logtree.Node {
	return destructure.New().CreatePropertyValue(value)
}

// destructurePlain converts value without redaction and strips the carried
// types so that only the tags remain, as a decoupled producer would.
func destructurePlain(value any) logtree.Node {
	return untyped(destructureTyped(value))
}

func untyped(n logtree.Node) logtree.Node {
	switch v := n.(type) {
	case *logtree.StructureValue:
		props := make([]logtree.Property, len(v.Properties))
		for i, p := range v.Properties {
			props[i] = logtree.Prop(p.Name, untyped(p.Value))
		}
		return logtree.Structure(v.TypeTag, props...)
	case *logtree.SequenceValue:
		elems := make([]logtree.Node, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = untyped(e)
		}
		return logtree.Sequence(elems...)
	default:
		return n
	}
}
