package query

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// columns maps API names onto the model's real columns and relations. Any
// name that does not resolve is dropped, so identifiers reaching SQL always
// come from the model schema.
type columns struct {
	schema *schema.Schema
	byName map[string]*schema.Field
}

func newColumns(db *gorm.DB, model any) (*columns, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, err
	}
	return indexSchema(stmt.Schema), nil
}

func indexSchema(s *schema.Schema) *columns {
	c := &columns{schema: s, byName: map[string]*schema.Field{}}
	for _, field := range s.Fields {
		if field.DBName == "" {
			continue
		}
		for _, name := range []string{field.DBName, field.Name, jsonName(field)} {
			if key := normalize(name); key != "" {
				if _, taken := c.byName[key]; !taken {
					c.byName[key] = field
				}
			}
		}
	}
	return c
}

func (c *columns) field(name string) (*schema.Field, bool) {
	f, ok := c.byName[normalize(name)]
	return f, ok
}

func (c *columns) primaryKey() string {
	if c.schema.PrioritizedPrimaryField != nil {
		return c.schema.PrioritizedPrimaryField.DBName
	}
	return ""
}

// relationPath resolves a dotted API path ("items.product") to the GORM
// preload path ("Items.Product") plus the foreign keys the root row must
// carry for the preload to work.
func (c *columns) relationPath(path string) (string, []string, bool) {
	current := c.schema
	var names, rootKeys []string
	for i, segment := range strings.Split(path, ".") {
		rel := findRelation(current, segment)
		if rel == nil {
			return "", nil, false
		}
		if i == 0 && rel.Type == schema.BelongsTo {
			for _, ref := range rel.References {
				if ref.ForeignKey != nil && ref.ForeignKey.DBName != "" {
					rootKeys = append(rootKeys, ref.ForeignKey.DBName)
				}
			}
		}
		names = append(names, rel.Name)
		current = rel.FieldSchema
	}
	return strings.Join(names, "."), rootKeys, true
}

func findRelation(s *schema.Schema, name string) *schema.Relationship {
	key := normalize(name)
	for relName, rel := range s.Relationships.Relations {
		if normalize(relName) == key {
			return rel
		}
		if rel.Field != nil && normalize(jsonName(rel.Field)) == key {
			return rel
		}
	}
	return nil
}

func jsonName(field *schema.Field) string {
	tag := field.Tag.Get("json")
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

// normalize makes createdAt, created_at and CreatedAt compare equal.
func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
}
