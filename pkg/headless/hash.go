package headless

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

const hashPrefix = "element_hash_"

var namespaceSanitizer = strings.NewReplacer(":", "_", ".", "_")

// BrickHash returns the hash of a brick addressed by its namespace.
func BrickHash(namespace string) string {
	return hashKey(hashPrefix + namespaceSanitizer.Replace(namespace))
}

// EditableHash returns the hash of a plain editable addressed by its name.
func EditableHash(name string) string {
	return hashKey(hashPrefix + namespaceSanitizer.Replace(name))
}

// BlockHash returns the hash of one repetition of a block.
func BlockHash(blockName string, index int) string {
	return hashKey(fmt.Sprintf("%s%s_%d", hashPrefix, blockName, index))
}

// EditableNamespace returns the namespace of a plain editable.
func EditableNamespace(name string) string {
	return strings.ReplaceAll(name, ".", ":")
}

// hashKey renders the 64-bit xxh3 hash as 16 lowercase hex digits.
func hashKey(key string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(key))
}
