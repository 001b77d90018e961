package tree

// Kind is the closed set of node kinds the transformation passes dispatch on.
// Tags outside the table map to [KindUnknown]; the original tag is always kept
// on the node so unknown kinds still round-trip.
type Kind uint8

// Node kinds. The names mirror the Python ast class names they are decoded from.
const (
	KindUnknown Kind = iota
	KindNull
	KindModule
	KindInteractive
	KindExpression
	KindFunctionDef
	KindAsyncFunctionDef
	KindClassDef
	KindReturn
	KindDelete
	KindAssign
	KindAugAssign
	KindAnnAssign
	KindFor
	KindAsyncFor
	KindWhile
	KindIf
	KindWith
	KindAsyncWith
	KindMatch
	KindMatchCase
	KindMatchAs
	KindMatchStar
	KindMatchMapping
	KindMatchClass
	KindTry
	KindTryStar
	KindExceptHandler
	KindRaise
	KindAssert
	KindImport
	KindImportFrom
	KindAlias
	KindGlobal
	KindNonlocal
	KindExpr
	KindPass
	KindBreak
	KindContinue
	KindName
	KindConstant
	KindAttribute
	KindSubscript
	KindStarred
	KindTuple
	KindList
	KindDict
	KindSet
	KindCall
	KindKeyword
	KindBinOp
	KindUnaryOp
	KindBoolOp
	KindCompare
	KindIfExp
	KindLambda
	KindArguments
	KindArg
	KindComprehension
	KindListComp
	KindSetComp
	KindDictComp
	KindGeneratorExp
	KindSlice
	KindFormattedValue
	KindJoinedStr
	KindAwait
	KindYield
	KindYieldFrom
	KindNamedExpr
	KindLoad
	KindStore
	KindDel

	kindCount
)

// NullTag is the tag of the placeholder node standing in for a null element of
// a child list.
const NullTag = "_null"

//nolint:gochecknoglobals // Static lookup table.
var kindTags = [kindCount]string{
	KindUnknown:          "",
	KindNull:             NullTag,
	KindModule:           "Module",
	KindInteractive:      "Interactive",
	KindExpression:       "Expression",
	KindFunctionDef:      "FunctionDef",
	KindAsyncFunctionDef: "AsyncFunctionDef",
	KindClassDef:         "ClassDef",
	KindReturn:           "Return",
	KindDelete:           "Delete",
	KindAssign:           "Assign",
	KindAugAssign:        "AugAssign",
	KindAnnAssign:        "AnnAssign",
	KindFor:              "For",
	KindAsyncFor:         "AsyncFor",
	KindWhile:            "While",
	KindIf:               "If",
	KindWith:             "With",
	KindAsyncWith:        "AsyncWith",
	KindMatch:            "Match",
	KindMatchCase:        "match_case",
	KindMatchAs:          "MatchAs",
	KindMatchStar:        "MatchStar",
	KindMatchMapping:     "MatchMapping",
	KindMatchClass:       "MatchClass",
	KindTry:              "Try",
	KindTryStar:          "TryStar",
	KindExceptHandler:    "ExceptHandler",
	KindRaise:            "Raise",
	KindAssert:           "Assert",
	KindImport:           "Import",
	KindImportFrom:       "ImportFrom",
	KindAlias:            "alias",
	KindGlobal:           "Global",
	KindNonlocal:         "Nonlocal",
	KindExpr:             "Expr",
	KindPass:             "Pass",
	KindBreak:            "Break",
	KindContinue:         "Continue",
	KindName:             "Name",
	KindConstant:         "Constant",
	KindAttribute:        "Attribute",
	KindSubscript:        "Subscript",
	KindStarred:          "Starred",
	KindTuple:            "Tuple",
	KindList:             "List",
	KindDict:             "Dict",
	KindSet:              "Set",
	KindCall:             "Call",
	KindKeyword:          "keyword",
	KindBinOp:            "BinOp",
	KindUnaryOp:          "UnaryOp",
	KindBoolOp:           "BoolOp",
	KindCompare:          "Compare",
	KindIfExp:            "IfExp",
	KindLambda:           "Lambda",
	KindArguments:        "arguments",
	KindArg:              "arg",
	KindComprehension:    "comprehension",
	KindListComp:         "ListComp",
	KindSetComp:          "SetComp",
	KindDictComp:         "DictComp",
	KindGeneratorExp:     "GeneratorExp",
	KindSlice:            "Slice",
	KindFormattedValue:   "FormattedValue",
	KindJoinedStr:        "JoinedStr",
	KindAwait:            "Await",
	KindYield:            "Yield",
	KindYieldFrom:        "YieldFrom",
	KindNamedExpr:        "NamedExpr",
	KindLoad:             "Load",
	KindStore:            "Store",
	KindDel:              "Del",
}

//nolint:gochecknoglobals // Built once from kindTags.
var kindsByTag = func() map[string]Kind {
	byTag := make(map[string]Kind, kindCount)

	for k := KindNull; k < kindCount; k++ {
		byTag[kindTags[k]] = k
	}

	return byTag
}()

// KindOf maps a type tag to its kind. Unrecognized tags yield [KindUnknown].
func KindOf(tag string) Kind {
	if k, ok := kindsByTag[tag]; ok {
		return k
	}

	return KindUnknown
}

// String returns the canonical tag of the kind, or "Unknown".
func (k Kind) String() string {
	if k == KindUnknown || k >= kindCount {
		return "Unknown"
	}

	return kindTags[k]
}

// IsFunction reports whether the kind is a def or async def.
func (k Kind) IsFunction() bool {
	return k == KindFunctionDef || k == KindAsyncFunctionDef
}

// CreatesScope reports whether entering a node of this kind opens a new
// binding scope.
func (k Kind) CreatesScope() bool {
	return k.IsFunction() || k == KindClassDef || k == KindLambda
}
