package entity

type topic struct {
	name     string
	typeName string
}

func (t *topic) Name() string {
	return t.name
}

func (t *topic) TypeName() string {
	return t.typeName
}
