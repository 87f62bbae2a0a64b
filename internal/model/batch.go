package model

// SyncEntityBatch holds one entity group of a push.
type SyncEntityBatch struct {
	Created []Record `json:"created"`
	Updated []Record `json:"updated"`
	Deleted []string `json:"deleted"`
}

// Len returns the number of mutations in the group.
func (b *SyncEntityBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Created) + len(b.Updated) + len(b.Deleted)
}

// Normalize replaces nil slices with empty ones.
func (b *SyncEntityBatch) Normalize() {
	if b.Created == nil {
		b.Created = []Record{}
	}
	if b.Updated == nil {
		b.Updated = []Record{}
	}
	if b.Deleted == nil {
		b.Deleted = []string{}
	}
}

// PageBatch is the page group, carrying the content kind of its pages.
type PageBatch struct {
	Type string `json:"type,omitempty"`
	SyncEntityBatch
}

// SyncBatch is a full push payload. Folder and Alarm are optional and skipped when nil.
type SyncBatch struct {
	Page   PageBatch        `json:"page"`
	Folder *SyncEntityBatch `json:"folder,omitempty"`
	Alarm  *SyncEntityBatch `json:"alarm,omitempty"`
}
