package terminology

import "sync"

// coreDefinitions is the vocabulary every scriptable application shares.
var coreDefinitions = Definitions{
	Types: map[string]string{
		"anything":      "****",
		"application":   "capp",
		"boolean":       "bool",
		"class":         "type",
		"date":          "ldt ",
		"document":      "docu",
		"file":          "file",
		"integer":       "long",
		"item":          "cobj",
		"list":          "list",
		"missing value": "msng",
		"property":      "prop",
		"real":          "doub",
		"record":        "reco",
		"reference":     "obj ",
		"text":          "ctxt",
		"window":        "cwin",
	},
	Enums: map[string]string{
		"ask": "ask ",
		"no":  "no  ",
		"yes": "yes ",
	},
	Properties: map[string]string{
		"bounds":     "pbnd",
		"class":      "pcls",
		"contents":   "pcnt",
		"frontmost":  "pisf",
		"id":         "ID  ",
		"index":      "pidx",
		"name":       "pnam",
		"properties": "pALL",
		"selection":  "sele",
		"version":    "vers",
		"visible":    "pvis",
	},
	Elements: map[string]string{
		"applications": "capp",
		"characters":   "cha ",
		"documents":    "docu",
		"files":        "file",
		"items":        "cobj",
		"paragraphs":   "cpar",
		"windows":      "cwin",
		"words":        "cwor",
	},
	Commands: []CommandDefinition{
		{Name: "activate", Class: "misc", ID: "actv"},
		{Name: "close", Class: "core", ID: "clos", Params: map[string]string{"saving": "savo", "savingIn": "kfil"}},
		{Name: "count", Class: "core", ID: "cnte", Params: map[string]string{"each": "kocl"}},
		{Name: "delete", Class: "core", ID: "delo"},
		{Name: "exists", Class: "core", ID: "doex"},
		{Name: "get", Class: "core", ID: "getd"},
		{Name: "launch", Class: "ascr", ID: "noop"},
		{Name: "make", Class: "core", ID: "crel", Params: map[string]string{
			"at": "insh", "new": "kocl", "withData": "data", "withProperties": "prdt",
		}},
		{Name: "open", Class: "aevt", ID: "odoc"},
		{Name: "quit", Class: "aevt", ID: "quit", Params: map[string]string{"saving": "savo"}},
		{Name: "reopen", Class: "aevt", ID: "rapp"},
		{Name: "run", Class: "aevt", ID: "oapp"},
		{Name: "set", Class: "core", ID: "setd", Params: map[string]string{"to": "data"}},
	},
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
)

// Default returns the core vocabulary. The tables are built once and shared.
func Default() *Tables {
	defaultOnce.Do(func() {
		t, err := Build(nil, coreDefinitions)
		if err != nil {
			panic("terminology: core definitions: " + err.Error())
		}
		defaultTables = t
	})
	return defaultTables
}
