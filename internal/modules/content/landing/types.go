package landing

// ComponentInput is one component node as submitted by the authoring surface.
// Positions are assigned server-side from input order; any client-supplied
// ordinal is ignored. An empty ID means a new node.
type ComponentInput struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"   binding:"required"`
	Config map[string]interface{} `json:"config"`
}

type CreatePageDTO struct {
	Slug        string                 `json:"slug"        binding:"required"`
	Title       string                 `json:"title"       binding:"required"`
	Description string                 `json:"description"`
	Meta        map[string]interface{} `json:"meta"`
	Campaign    string                 `json:"campaign"`
	Source      string                 `json:"source"`
	Components  []ComponentInput       `json:"components"`
}

// ReplaceComponentsDTO carries the whole replacement tree plus the version
// the editor last read. Version is a pointer so that 0 is bindable.
type ReplaceComponentsDTO struct {
	Version    *int             `json:"version"    binding:"required"`
	Components []ComponentInput `json:"components" binding:"required"`
}

type UpdateMetaDTO struct {
	Version     *int                   `json:"version" binding:"required"`
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Meta        map[string]interface{} `json:"meta"`
	Campaign    *string                `json:"campaign"`
	Source      *string                `json:"source"`
}

type RenameSlugDTO struct {
	Version *int   `json:"version" binding:"required"`
	Slug    string `json:"slug"    binding:"required"`
}

type transitionDTO struct {
	Version *int `json:"version" binding:"required"`
}
