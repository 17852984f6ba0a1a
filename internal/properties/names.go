// internal/properties/names.go
package properties

import (
	"fmt"

	"github.com/solatis/browscap/internal/types"
)

/*
 * Closed property schema.
 *
 * Every property a definitions file may carry is a Name constant with a fixed
 * Kind. The tables below are the wire format: compiled property records are
 * keyed by these names, and a definitions file using a name not listed here
 * fails compilation with ErrUnknownProperty.
 *
 * Adding a property means adding a constant, a names entry and a kinds entry.
 * The array sizes are tied to numNames so a missing entry fails to compile.
 */

// Kind classifies how a property value is normalized.
type Kind int

const (
	KindString Kind = iota
	KindGeneric
	KindNumber
	KindBoolean
	KindInArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindGeneric:
		return "generic"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindInArray:
		return "inarray"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Name identifies one known property.
type Name int

const (
	Comment Name = iota
	Browser
	BrowserType
	BrowserBits
	BrowserMaker
	BrowserModus
	Version
	MajorVer
	MinorVer
	Platform
	PlatformVersion
	PlatformName
	PlatformDescription
	PlatformBits
	PlatformMaker
	Alpha
	Beta
	Win16
	Win32
	Win64
	Frames
	IFrames
	Tables
	Cookies
	BackgroundSounds
	JavaScript
	VBScript
	JavaApplets
	ActiveXControls
	IsMobileDevice
	IsTablet
	IsSyndicationReader
	Crawler
	IsFake
	IsAnonymized
	IsModified
	CSSVersion
	AolVersion
	DeviceName
	DeviceMaker
	DeviceType
	DevicePointingMethod
	DeviceCodeName
	DeviceBrandName
	RenderingEngineName
	RenderingEngineVersion
	RenderingEngineDescription
	RenderingEngineMaker
	Parent
	MasterParent
	LiteMode
	PropertyName
	PatternID
	Released
	Format
	Type

	numNames
)

var names = [numNames]string{
	Comment:                    "Comment",
	Browser:                    "Browser",
	BrowserType:                "Browser_Type",
	BrowserBits:                "Browser_Bits",
	BrowserMaker:               "Browser_Maker",
	BrowserModus:               "Browser_Modus",
	Version:                    "Version",
	MajorVer:                   "MajorVer",
	MinorVer:                   "MinorVer",
	Platform:                   "Platform",
	PlatformVersion:            "Platform_Version",
	PlatformName:               "Platform_Name",
	PlatformDescription:        "Platform_Description",
	PlatformBits:               "Platform_Bits",
	PlatformMaker:              "Platform_Maker",
	Alpha:                      "Alpha",
	Beta:                       "Beta",
	Win16:                      "Win16",
	Win32:                      "Win32",
	Win64:                      "Win64",
	Frames:                     "Frames",
	IFrames:                    "IFrames",
	Tables:                     "Tables",
	Cookies:                    "Cookies",
	BackgroundSounds:           "BackgroundSounds",
	JavaScript:                 "JavaScript",
	VBScript:                   "VBScript",
	JavaApplets:                "JavaApplets",
	ActiveXControls:            "ActiveXControls",
	IsMobileDevice:             "isMobileDevice",
	IsTablet:                   "isTablet",
	IsSyndicationReader:        "isSyndicationReader",
	Crawler:                    "Crawler",
	IsFake:                     "isFake",
	IsAnonymized:               "isAnonymized",
	IsModified:                 "isModified",
	CSSVersion:                 "CssVersion",
	AolVersion:                 "AolVersion",
	DeviceName:                 "Device_Name",
	DeviceMaker:                "Device_Maker",
	DeviceType:                 "Device_Type",
	DevicePointingMethod:       "Device_Pointing_Method",
	DeviceCodeName:             "Device_Code_Name",
	DeviceBrandName:            "Device_Brand_Name",
	RenderingEngineName:        "RenderingEngine_Name",
	RenderingEngineVersion:     "RenderingEngine_Version",
	RenderingEngineDescription: "RenderingEngine_Description",
	RenderingEngineMaker:       "RenderingEngine_Maker",
	Parent:                     "Parent",
	MasterParent:               "MasterParent",
	LiteMode:                   "LiteMode",
	PropertyName:               "PropertyName",
	PatternID:                  "PatternId",
	Released:                   "Released",
	Format:                     "Format",
	Type:                       "Type",
}

var kinds = [numNames]Kind{
	Comment:                    KindString,
	Browser:                    KindString,
	BrowserType:                KindInArray,
	BrowserBits:                KindInArray,
	BrowserMaker:               KindString,
	BrowserModus:               KindString,
	Version:                    KindNumber,
	MajorVer:                   KindNumber,
	MinorVer:                   KindNumber,
	Platform:                   KindString,
	PlatformVersion:            KindGeneric,
	PlatformName:               KindString,
	PlatformDescription:        KindString,
	PlatformBits:               KindInArray,
	PlatformMaker:              KindString,
	Alpha:                      KindBoolean,
	Beta:                       KindBoolean,
	Win16:                      KindBoolean,
	Win32:                      KindBoolean,
	Win64:                      KindBoolean,
	Frames:                     KindBoolean,
	IFrames:                    KindBoolean,
	Tables:                     KindBoolean,
	Cookies:                    KindBoolean,
	BackgroundSounds:           KindBoolean,
	JavaScript:                 KindBoolean,
	VBScript:                   KindBoolean,
	JavaApplets:                KindBoolean,
	ActiveXControls:            KindBoolean,
	IsMobileDevice:             KindBoolean,
	IsTablet:                   KindBoolean,
	IsSyndicationReader:        KindBoolean,
	Crawler:                    KindBoolean,
	IsFake:                     KindBoolean,
	IsAnonymized:               KindBoolean,
	IsModified:                 KindBoolean,
	CSSVersion:                 KindNumber,
	AolVersion:                 KindNumber,
	DeviceName:                 KindString,
	DeviceMaker:                KindString,
	DeviceType:                 KindInArray,
	DevicePointingMethod:       KindInArray,
	DeviceCodeName:             KindString,
	DeviceBrandName:            KindString,
	RenderingEngineName:        KindString,
	RenderingEngineVersion:     KindGeneric,
	RenderingEngineDescription: KindString,
	RenderingEngineMaker:       KindString,
	Parent:                     KindString,
	MasterParent:               KindBoolean,
	LiteMode:                   KindBoolean,
	PropertyName:               KindString,
	PatternID:                  KindString,
	Released:                   KindGeneric,
	Format:                     KindGeneric,
	Type:                       KindGeneric,
}

// allowed lists the closed value sets of KindInArray properties.
var allowed = map[Name][]string{
	BrowserType: {
		"Useragent Anonymizer", "Browser", "Offline Browser", "Multimedia Player",
		"Library", "Feed Reader", "Email Client", "Bot/Crawler", "Application",
		"Tool", "unknown",
	},
	DeviceType: {
		"Console", "TV Device", "Tablet", "Mobile Phone", "Smartphone",
		"Feature Phone", "Mobile Device", "FonePad", "Desktop", "Ebook Reader",
		"Car Entertainment System", "Digital Camera", "unknown",
	},
	DevicePointingMethod: {
		"joystick", "stylus", "touchscreen", "clickwheel", "trackpad",
		"trackball", "mouse", "unknown",
	},
	BrowserBits:  {"0", "8", "16", "32", "64"},
	PlatformBits: {"0", "8", "16", "32", "64"},
}

var byName map[string]Name

func init() {
	byName = make(map[string]Name, numNames)
	for n := Name(0); n < numNames; n++ {
		byName[names[n]] = n
	}
}

// String returns the wire name, e.g. "Browser_Type".
func (n Name) String() string {
	if n < 0 || n >= numNames {
		return fmt.Sprintf("Name(%d)", int(n))
	}
	return names[n]
}

// Kind returns the classification of a known name.
func (n Name) Kind() Kind {
	return kinds[n]
}

// Allowed returns the value set of an enumerated property, nil otherwise.
func (n Name) Allowed() []string {
	return allowed[n]
}

// Names returns every known property in schema order.
func Names() []Name {
	out := make([]Name, numNames)
	for i := range out {
		out[i] = Name(i)
	}
	return out
}

// Lookup resolves a wire name. Names are case-sensitive.
func Lookup(property string) (Name, error) {
	n, ok := byName[property]
	if !ok {
		return 0, fmt.Errorf("%w: %q", types.ErrUnknownProperty, property)
	}
	return n, nil
}

// Classify returns the Kind of a property by wire name.
// Returns ErrUnknownProperty (an ErrInvalidArgument) for unrecognized names.
func Classify(property string) (Kind, error) {
	n, err := Lookup(property)
	if err != nil {
		return 0, err
	}
	return n.Kind(), nil
}
