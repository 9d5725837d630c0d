// Package serialization stores network parameters and optimiser state in the
// .bnet checkpoint format.
//
//	Format Structure:
//	  [0x00: Magic "BNET"]
//	  [0x04: Version (uint32 LE)]
//	  [0x08: Flags (uint32 LE)]
//	  [0x0C: Reserved]
//	  [0x10: Header size (uint64 LE)]
//	  [0x18: Data size (uint64 LE)]
//	  [0x20: SHA-256 of the data section (32 bytes)]
//	  [0x40: Header: JSON metadata]
//	  [Tensor data: little-endian float32 or float16, 64-byte aligned]
//
// Parameters may be quantised to float16 on export; optimiser state is always
// stored as float32.
//
// Example usage:
//
//	err := serialization.WriteParams("net.bnet", graph, opt, serialization.Header{NetID: id}, tensor.Float32)
//
//	header, err := serialization.ReadParams("net.bnet", graph, opt, serialization.ReaderOptions{})
package serialization
