package rag

import "strings"

const collectionPrefix = "collection_"

// CollectionName maps a project to its vector collection.
func CollectionName(projectID string) string {
	return strings.TrimSpace(collectionPrefix + projectID)
}
