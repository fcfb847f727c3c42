package udf

// UDF 2.50 structures as found on BD-ROM media.
const (
	SectorSize = 2048

	// The volume recognition sequence starts at sector 16.
	VRSOffset = 16 * SectorSize

	StandardIDBEA01 = "BEA01"
	StandardIDNSR02 = "NSR02"
	StandardIDNSR03 = "NSR03"
	StandardIDTEA01 = "TEA01"

	// Descriptor tags
	TagPrimaryVolume        = 1
	TagAnchorVolume         = 2
	TagVolumePointer        = 3
	TagImplementationVolume = 4
	TagPartition            = 5
	TagLogicalVolume        = 6
	TagUnallocatedSpace     = 7
	TagTerminating          = 8
	TagFileSet              = 256
	TagFileIdentifier       = 257
	TagAllocationExtent     = 258
	TagIndirect             = 259
	TagTerminalEntry        = 260
	TagFile                 = 261
	TagExtendedAttribute    = 262
	TagExtendedFileEntry    = 266

	// File characteristics
	FileCharHidden    = 0x01
	FileCharDirectory = 0x02
	FileCharDeleted   = 0x04
	FileCharParent    = 0x08
	FileCharMetadata  = 0x10

	// ICB file types
	ICBFileTypeDirectory = 4
	ICBFileTypeFile      = 5
	ICBFileTypeMetadata  = 250

	// Allocation descriptor kinds in the low bits of ICBTag.Flags.
	AllocShort    = 0
	AllocLong     = 1
	AllocExtended = 2
	AllocEmbedded = 3

	// Partition map types
	PartitionMapType1 = 1
	PartitionMapType2 = 2

	metadataPartitionID = "*UDF Metadata Partition"

	// Fixed part of a (extended) file entry, before extended attributes.
	fileEntrySize         = 176
	extendedFileEntrySize = 216
	// Fixed part of a file identifier descriptor.
	fidHeaderSize = 38
	// Extent lengths carry the extent type in their top two bits.
	extentLengthMask = 0x3FFFFFFF
)

type EntityID struct {
	Flags      byte
	Identifier [23]byte
	Suffix     [8]byte
}

type ExtentAD struct {
	Length   uint32
	Location uint32
}

// LBAddr is a block address relative to the referenced partition.
type LBAddr struct {
	LogicalBlockNumber       uint32
	PartitionReferenceNumber uint16
}

type LongAD struct {
	ExtentLength      uint32
	ExtentLocation    LBAddr
	ImplementationUse [6]byte
}

type ShortAD struct {
	ExtentLength   uint32
	ExtentPosition uint32
}

type Timestamp struct {
	TypeAndTimezone        uint16
	Year                   uint16
	Month                  uint8
	Day                    uint8
	Hour                   uint8
	Minute                 uint8
	Second                 uint8
	Centiseconds           uint8
	HundredsOfMicroseconds uint8
	Microseconds           uint8
}

type Tag struct {
	TagIdentifier       uint16
	DescriptorVersion   uint16
	TagChecksum         uint8
	Reserved            uint8
	TagSerialNumber     uint16
	DescriptorCRC       uint16
	DescriptorCRCLength uint16
	TagLocation         uint32
}

type CharSpec struct {
	CharacterSetType uint8
	CharacterSetInfo [63]byte
}

type VolumeRecognitionDescriptor struct {
	StructureType      uint8
	StandardIdentifier [5]byte
	StructureVersion   uint8
	Reserved           byte
	StructureData      [2040]byte
}

type AnchorVolumeDescriptorPointer struct {
	DescriptorTag                         Tag
	MainVolumeDescriptorSequenceExtent    ExtentAD
	ReserveVolumeDescriptorSequenceExtent ExtentAD
	Reserved                              [480]byte
}

type PrimaryVolumeDescriptor struct {
	DescriptorTag                               Tag
	VolumeDescriptorSequenceNumber              uint32
	PrimaryVolumeDescriptorNumber               uint32
	VolumeIdentifier                            [32]byte
	VolumeSequenceNumber                        uint16
	MaximumVolumeSequenceNumber                 uint16
	InterchangeLevel                            uint16
	MaximumInterchangeLevel                     uint16
	CharacterSetList                            uint32
	MaximumCharacterSetList                     uint32
	VolumeSetIdentifier                         [128]byte
	DescriptorCharacterSet                      CharSpec
	ExplanatoryCharacterSet                     CharSpec
	VolumeAbstract                              ExtentAD
	VolumeCopyrightNotice                       ExtentAD
	ApplicationIdentifier                       EntityID
	RecordingDateAndTime                        Timestamp
	ImplementationIdentifier                    EntityID
	ImplementationUse                           [64]byte
	PredecessorVolumeDescriptorSequenceLocation uint32
	Flags                                       uint16
	Reserved                                    [22]byte
}

type PartitionDescriptor struct {
	DescriptorTag                  Tag
	VolumeDescriptorSequenceNumber uint32
	PartitionFlags                 uint16
	PartitionNumber                uint16
	PartitionContents              EntityID
	PartitionContentsUse           [128]byte
	AccessType                     uint32
	PartitionStartingLocation      uint32
	PartitionLength                uint32
	ImplementationIdentifier       EntityID
	ImplementationUse              [128]byte
	Reserved                       [156]byte
}

// LogicalVolumeDescriptor is followed by MapTableLength bytes of
// partition maps.
type LogicalVolumeDescriptor struct {
	DescriptorTag                  Tag
	VolumeDescriptorSequenceNumber uint32
	DescriptorCharacterSet         CharSpec
	LogicalVolumeIdentifier        [128]byte
	LogicalBlockSize               uint32
	DomainIdentifier               EntityID
	LogicalVolumeContentsUse       [16]byte
	MapTableLength                 uint32
	NumberOfPartitionMaps          uint32
	ImplementationIdentifier       EntityID
	ImplementationUse              [128]byte
	IntegritySequenceExtent        ExtentAD
}

type FileSetDescriptor struct {
	DescriptorTag                       Tag
	RecordingDateAndTime                Timestamp
	InterchangeLevel                    uint16
	MaximumInterchangeLevel             uint16
	CharacterSetList                    uint32
	MaximumCharacterSetList             uint32
	FileSetNumber                       uint32
	FileSetDescriptorNumber             uint32
	LogicalVolumeIdentifierCharacterSet CharSpec
	LogicalVolumeIdentifier             [128]byte
	FileSetCharacterSet                 CharSpec
	FileSetIdentifier                   [32]byte
	CopyrightFileIdentifier             [32]byte
	AbstractFileIdentifier              [32]byte
	RootDirectoryICB                    LongAD
	DomainIdentifier                    EntityID
	NextExtent                          LongAD
	SystemStreamDirectoryICB            LongAD
	Reserved                            [32]byte
}

type ICBTag struct {
	PriorRecordedNumberOfDirectEntries uint32
	StrategyType                       uint16
	StrategyParameter                  [2]byte
	MaximumNumberOfEntries             uint16
	Reserved                           byte
	FileType                           uint8
	ParentICBLocation                  LBAddr
	Flags                              uint16
}

// FileEntry is followed by extended attributes and allocation descriptors.
type FileEntry struct {
	DescriptorTag                 Tag
	ICBTag                        ICBTag
	UID                           uint32
	GID                           uint32
	Permissions                   uint32
	FileLinkCount                 uint16
	RecordFormat                  uint8
	RecordDisplayAttributes       uint8
	RecordLength                  uint32
	InformationLength             uint64
	LogicalBlocksRecorded         uint64
	AccessTime                    Timestamp
	ModificationTime              Timestamp
	AttributeTime                 Timestamp
	Checkpoint                    uint32
	ExtendedAttributeICB          LongAD
	ImplementationIdentifier      EntityID
	UniqueID                      uint64
	LengthOfExtendedAttributes    uint32
	LengthOfAllocationDescriptors uint32
}

type ExtendedFileEntry struct {
	DescriptorTag                 Tag
	ICBTag                        ICBTag
	UID                           uint32
	GID                           uint32
	Permissions                   uint32
	FileLinkCount                 uint16
	RecordFormat                  uint8
	RecordDisplayAttributes       uint8
	RecordLength                  uint32
	InformationLength             uint64
	ObjectSize                    uint64
	LogicalBlocksRecorded         uint64
	AccessTime                    Timestamp
	ModificationTime              Timestamp
	CreateTime                    Timestamp
	AttributeTime                 Timestamp
	Checkpoint                    uint32
	Reserved                      [4]byte
	ExtendedAttributeICB          LongAD
	StreamDirectoryICB            LongAD
	ImplementationIdentifier      EntityID
	UniqueID                      uint64
	LengthOfExtendedAttributes    uint32
	LengthOfAllocationDescriptors uint32
}
