package engine

// SuiteSpec is the in-memory run definition handed to the engine. It mirrors the
// suite → test → class → include tree of classic xml suite files.
type SuiteSpec struct {
	Name  string
	Tests []TestSpec
}

type TestSpec struct {
	Name    string
	Classes []ClassSpec
}

// ClassSpec selects a class by its fully qualified name. An empty Includes list
// selects every method of the class.
type ClassSpec struct {
	Name     string
	Includes []Include
}

type Include struct {
	Method string
}
