package model

// builtinNative describes one preloaded Native type: its C-family spelling,
// its wire width, signedness/kind, and the Go primitive type the emitters
// render it as.
type builtinNative struct {
	names  []string // every C spelling that resolves to this type
	width  int
	signed bool
	kind   NativeKind
	goType string
}

// builtins is the fixed table of Native types preloaded before parsing
// begins, mirroring init_builtin_types in the original cser.c plus the
// fixed-width stdint.h aliases that tool would otherwise only see via
// #include (this reimplementation's parser does not process includes, so
// the common stdint.h/sys/types.h names are preloaded directly).
var builtins = []builtinNative{
	{names: []string{"void"}, width: 0, kind: KindVoid, goType: ""},
	{names: []string{"_Bool", "bool"}, width: 1, kind: KindBool, goType: "bool"},
	{names: []string{"char"}, width: 1, signed: true, kind: KindInt, goType: "byte"},
	{names: []string{"signed char"}, width: 1, signed: true, kind: KindInt, goType: "int8"},
	{names: []string{"unsigned char", "uint8_t"}, width: 1, kind: KindInt, goType: "uint8"},
	{names: []string{"int8_t"}, width: 1, signed: true, kind: KindInt, goType: "int8"},

	{names: []string{
		"short", "signed short", "short int", "signed short int", "short signed int",
		"int16_t",
	}, width: 2, signed: true, kind: KindInt, goType: "int16"},
	{names: []string{
		"unsigned short", "unsigned short int", "short unsigned int", "uint16_t",
	}, width: 2, kind: KindInt, goType: "uint16"},

	{names: []string{
		"int", "signed", "signed int", "int32_t",
	}, width: 4, signed: true, kind: KindInt, goType: "int32"},
	{names: []string{
		"unsigned", "unsigned int", "uint32_t",
	}, width: 4, kind: KindInt, goType: "uint32"},

	{names: []string{
		"long", "signed long", "long int", "signed long int", "long signed int",
		"long long", "long long int", "signed long long int",
		"int64_t", "ssize_t",
	}, width: 8, signed: true, kind: KindInt, goType: "int64"},
	{names: []string{
		"unsigned long", "unsigned long int", "long unsigned int",
		"unsigned long long", "unsigned long long int",
		"uint64_t", "size_t",
	}, width: 8, kind: KindInt, goType: "uint64"},

	{names: []string{"float"}, width: 4, signed: true, kind: KindFloat, goType: "float32"},
	{names: []string{"double", "long double"}, width: 8, signed: true, kind: KindFloat, goType: "float64"},
}

// RegisterBuiltins preloads r with the fixed set of Native types, so that
// parser type lookups resolve before any user declaration is seen.
func RegisterBuiltins(r *Registry) {
	for _, b := range builtins {
		info := NativeInfo{Width: b.width, Signed: b.signed, Kind: b.kind, GoType: b.goType}
		for _, name := range b.names {
			r.AddType(&Type{
				Name:           name,
				Classification: Native,
				NativeInfo:     info,
			})
		}
	}
}
