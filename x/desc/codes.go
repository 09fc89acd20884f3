package desc

import "github.com/compose-network/aebridge/x/fourcc"

// FlatHeader opens every flattened descriptor.
var FlatHeader = fourcc.Make("dle2")

// Descriptor type codes.
var (
	TypeNull                = fourcc.Make("null")
	TypeTrue                = fourcc.Make("true")
	TypeFalse               = fourcc.Make("fals")
	TypeBoolean             = fourcc.Make("bool")
	TypeSInt16              = fourcc.Make("shor")
	TypeSInt32              = fourcc.Make("long")
	TypeSInt64              = fourcc.Make("comp")
	TypeUInt32              = fourcc.Make("magn")
	TypeFloat32             = fourcc.Make("sing")
	TypeFloat64             = fourcc.Make("doub")
	TypeUnicodeText         = fourcc.Make("utxt")
	TypeUTF8Text            = fourcc.Make("utf8")
	TypeChar                = fourcc.Make("TEXT")
	TypeLongDateTime        = fourcc.Make("ldt ")
	TypeList                = fourcc.Make("list")
	TypeRecord              = fourcc.Make("reco")
	TypeType                = fourcc.Make("type")
	TypeEnumerated          = fourcc.Make("enum")
	TypeKeywordCode         = fourcc.Make("keyw")
	TypeProperty            = fourcc.Make("prop")
	TypeAbsoluteOrdinal     = fourcc.Make("abso")
	TypeFileURL             = fourcc.Make("furl")
	TypeObjectSpecifier     = fourcc.Make("obj ")
	TypeInsertionLoc        = fourcc.Make("insl")
	TypeCompDescriptor      = fourcc.Make("cmpd")
	TypeLogicalDescriptor   = fourcc.Make("logi")
	TypeRangeDescriptor     = fourcc.Make("rang")
	TypeCurrentContainer    = fourcc.Make("ccnt")
	TypeObjectBeingExamined = fourcc.Make("exmn")
	TypeAppleEvent          = fourcc.Make("aevt")
	TypeKernelProcessID     = fourcc.Make("kpid")
	TypeBundleID            = fourcc.Make("bund")
	TypeApplicationURL      = fourcc.Make("aprl")
)

// Record keys used by the protocol shapes.
var (
	KeyDesiredClass    = fourcc.Make("want")
	KeyKeyForm         = fourcc.Make("form")
	KeyKeyData         = fourcc.Make("seld")
	KeyContainer       = fourcc.Make("from")
	KeyRangeStart      = fourcc.Make("star")
	KeyRangeStop       = fourcc.Make("stop")
	KeyInsertObject    = fourcc.Make("kobj")
	KeyInsertPosition  = fourcc.Make("kpos")
	KeyCompOperator    = fourcc.Make("relo")
	KeyObject1         = fourcc.Make("obj1")
	KeyObject2         = fourcc.Make("obj2")
	KeyLogicalOperator = fourcc.Make("logc")
	KeyLogicalTerms    = fourcc.Make("term")
	KeyUserFields      = fourcc.Make("usrf")
	KeyClass           = fourcc.Make("pcls")
)

// Key forms of an object specifier.
var (
	FormProperty         = fourcc.Make("prop")
	FormUserProperty     = fourcc.Make("usrp")
	FormAbsolutePosition = fourcc.Make("indx")
	FormRelativePosition = fourcc.Make("rele")
	FormName             = fourcc.Make("name")
	FormUniqueID         = fourcc.Make("ID  ")
	FormRange            = fourcc.Make("rang")
	FormTest             = fourcc.Make("test")
)

// Enumerators.
var (
	OrdinalFirst  = fourcc.Make("firs")
	OrdinalMiddle = fourcc.Make("midd")
	OrdinalLast   = fourcc.Make("last")
	OrdinalAny    = fourcc.Make("any ")
	OrdinalAll    = fourcc.Make("all ")

	RelativePrevious = fourcc.Make("prev")
	RelativeNext     = fourcc.Make("next")

	PositionBefore    = fourcc.Make("befo")
	PositionAfter     = fourcc.Make("aftr")
	PositionBeginning = fourcc.Make("bgng")
	PositionEnd       = fourcc.Make("end ")

	OperatorLessThan       = fourcc.Make("<   ")
	OperatorLessOrEqual    = fourcc.Make("<=  ")
	OperatorEqual          = fourcc.Make("=   ")
	OperatorGreaterThan    = fourcc.Make(">   ")
	OperatorGreaterOrEqual = fourcc.Make(">=  ")
	OperatorBeginsWith     = fourcc.Make("bgwt")
	OperatorEndsWith       = fourcc.Make("ends")
	OperatorContains       = fourcc.Make("cont")

	LogicalAnd = fourcc.Make("AND ")
	LogicalOr  = fourcc.Make("OR  ")
	LogicalNot = fourcc.Make("NOT ")

	MissingValue = fourcc.Make("msng")
)

// ClassKeyNames are the spellings under which a record names its own type.
var ClassKeyNames = []string{"class", "pcls", "'pcls'", fourcc.Hex(fourcc.Make("pcls"))}

// listPreambleMarker is the third word of the outermost list/record preamble.
const listPreambleMarker = 0x18
