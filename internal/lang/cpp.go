package lang

import "github.com/smacker/go-tree-sitter/cpp"

// CPP is the registry name of the C++ language.
const CPP = "cpp"

func init() {
	Languages[CPP] = &Language{
		Name: CPP,
		Extensions: []string{
			".cpp", ".cc", ".cxx", ".c++", ".C",
			".hpp", ".hh", ".hxx", ".h++", ".h", ".ipp",
		},
		HeaderExtensions: []string{".hpp", ".hh", ".hxx", ".h++", ".h", ".ipp"},
		lang:             cpp.GetLanguage(),
	}
}
