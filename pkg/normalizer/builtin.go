package normalizer

import "context"

// ThumbnailName is the registry name of the thumbnail normalizer.
const ThumbnailName = "thumbnail"

// Pather is implemented by values that resolve to a public path, such as
// image thumbnails.
type Pather interface {
	Path() string
}

// Thumbnail replaces a Pather value with its path. Other values pass through.
var Thumbnail = Func(func(_ context.Context, value interface{}, _ string) (interface{}, error) {
	if p, ok := value.(Pather); ok {
		return p.Path(), nil
	}
	return value, nil
})

func builtins() map[string]Normalizer {
	return map[string]Normalizer{
		ThumbnailName: Thumbnail,
	}
}
