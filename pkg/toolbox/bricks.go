package toolbox

import "sort"

// Brick describes a built-in area brick.
type Brick struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// HeadlessAware bricks emit headless payloads when rendered.
	HeadlessAware bool `json:"headless_aware"`
}

// CoreBricks lists the built-in bricks that can be switched on through
// enabled_core_areas.
var CoreBricks = map[string]Brick{
	"accordion":                {ID: "accordion", Name: "Accordion", Description: "Toolbox Accordion / Tabs", HeadlessAware: true},
	"anchor":                   {ID: "anchor", Name: "Anchor", Description: "Toolbox Anchor", HeadlessAware: true},
	"columns":                  {ID: "columns", Name: "Columns", Description: "Toolbox Columns", HeadlessAware: true},
	"container":                {ID: "container", Name: "Container", Description: "Toolbox Container", HeadlessAware: true},
	"content":                  {ID: "content", Name: "Content", Description: "Toolbox Content", HeadlessAware: true},
	"download":                 {ID: "download", Name: "Downloads", Description: "Toolbox Downloads", HeadlessAware: true},
	"gallery":                  {ID: "gallery", Name: "Gallery", Description: "Toolbox Gallery", HeadlessAware: true},
	"googleMap":                {ID: "googleMap", Name: "Google Map", Description: "Toolbox Google Map", HeadlessAware: true},
	"headline":                 {ID: "headline", Name: "Headline", Description: "Toolbox Headline", HeadlessAware: true},
	"iFrame":                   {ID: "iFrame", Name: "iFrame", Description: "Toolbox iFrame", HeadlessAware: true},
	"image":                    {ID: "image", Name: "Image", Description: "Toolbox Image", HeadlessAware: true},
	"linkList":                 {ID: "linkList", Name: "Link List", Description: "Toolbox Link List", HeadlessAware: true},
	"parallaxContainer":        {ID: "parallaxContainer", Name: "Parallax Container", Description: "Toolbox Parallax Container", HeadlessAware: true},
	"parallaxContainerSection": {ID: "parallaxContainerSection", Name: "Parallax Container Section", Description: "Toolbox Parallax Container Section", HeadlessAware: true},
	"separator":                {ID: "separator", Name: "Separator", Description: "Toolbox Separator", HeadlessAware: true},
	"slideColumns":             {ID: "slideColumns", Name: "Slide Columns", Description: "Toolbox Slide Columns", HeadlessAware: true},
	"snippet":                  {ID: "snippet", Name: "Snippet", Description: "Toolbox Snippet", HeadlessAware: true},
	"spacer":                   {ID: "spacer", Name: "Spacer", Description: "Toolbox Spacer", HeadlessAware: true},
	"teaser":                   {ID: "teaser", Name: "Teaser", Description: "Toolbox Teaser", HeadlessAware: true},
	"video":                    {ID: "video", Name: "Video", Description: "Toolbox Video", HeadlessAware: true},
}

// CoreAreaTypes returns the ids of all built-in bricks in sorted order.
func CoreAreaTypes() []string {
	ids := make([]string, 0, len(CoreBricks))
	for id := range CoreBricks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsCoreArea reports whether id names a built-in brick.
func IsCoreArea(id string) bool {
	_, ok := CoreBricks[id]
	return ok
}
