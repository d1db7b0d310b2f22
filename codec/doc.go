// Package codec converts between Go values and bridge objects.
//
// Strings and arrays are copied once into a sealed buffer.Buffer and read
// back without copying. ObjectArray holds handles to other bridge objects
// and owns one reference to each element.
package codec
