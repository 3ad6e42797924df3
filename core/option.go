package core

// Option configures a schema-bearing node (Record, LeafField, or vector)
// at declaration time.
type Option func(*base)

// Flag attaches a plain (non-token) schema flag, e.g. core.Flag(core.Key1).
func Flag(f SchemaFlag) Option {
	return func(b *base) { b.configure(f) }
}

// WithAltName declares an alternative serialized name.
func WithAltName(name string) Option {
	return func(b *base) { b.configure(b.tokens.add(altNameBase, name)) }
}

// WithColName declares a storage column name distinct from the field name.
func WithColName(name string) Option {
	return func(b *base) { b.configure(b.tokens.add(colNameBase, name)) }
}

// WithPrefix declares the prefix token prepended to an embedded
// sub-record's children's serialized names.
func WithPrefix(name string) Option {
	return func(b *base) { b.configure(b.tokens.add(prefixBase, name)) }
}

// WithLength declares a MaxLength flag, clipped to [1, 9999].
func WithLength(n int) Option {
	return func(b *base) { b.configure(Length(n)) }
}

func apply(b *base, name string, parent parentLink, opts []Option) {
	b.name = name
	b.parent = parent
	for _, o := range opts {
		o(b)
	}
	if b.hasFeature(InitialNull) != Unset {
		b.isNull = true
	}
}
