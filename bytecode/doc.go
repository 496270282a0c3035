// Package bytecode provides immutable representations of compiled
// Imp-Core code: instructions, compiled functions, and compiled modules.
//
// This package defines the output of compilation: pure data structures
// produced once by the compiler (or decoded by the codec package) and
// then shared by the loader and both VM execution tiers. Compiled
// functions are immutable after construction; a CompiledModule's static
// shape (functions, imports, exports metadata) is likewise fixed at
// construction, but its global slot storage is mutable runtime state —
// module initializers write FnHandle values into global slots and record
// exports as they execute, and the loader hands a module to importers
// only after its initializer completes.
//
// # Key types
//
//   - [Instr]: a single flat IR instruction, addressed by slot index
//   - [CompiledFunction]: one function's instruction sequence plus the
//     frame-sizing metadata needed to allocate a Frame for it
//   - [CompiledModule]: a function table, global slot table, import
//     list, and export map, identified by a loader-assigned module id
package bytecode
