// Package object implements composite bridge objects.
//
// A composite is a fixed set of named fields described by a Schema of WIT
// types. Its backing block uses C struct layout so the foreign side can read
// it directly:
//
//   - bool, s8/u8: 1 byte
//   - s16/u16: 2 bytes
//   - s32/u32, f32, char: 4 bytes
//   - s64/u64, f64: 8 bytes
//   - string, list, option, record, own: an 8-byte handle
//
// Fields are laid out in declaration order, each aligned to its natural
// alignment, and the total size is padded to the largest alignment.
//
// Handle fields hold a strong reference to a child object. The child's
// storage is never copied; dropping the composite releases each child
// exactly once.
//
// # Usage
//
//	schema, err := object.NewSchema("complex",
//	    object.Field{Name: "a", Type: wit.String{}},
//	    object.Field{Name: "b", Type: wit.S64{}},
//	    object.Field{Name: "c", Type: wit.Bool{}},
//	)
//	obj, err := object.NewBuilder(schema).
//	    Handle("a", str).
//	    Int("b", 42).
//	    Bool("c", true).
//	    Build(alloc, table)
package object
