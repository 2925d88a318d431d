package treeture

import "fmt"

// TaskID identifies a task within a family. It is stable once the owning
// task has been adopted into a family; before adoption a task is an orphan
// and its id carries no meaning beyond debug output.
type TaskID struct {
	FamilyID uint64
	Path     TaskPath
}

// String renders the id as "family/path", used for debug output and
// monitoring event fields.
func (id TaskID) String() string {
	return fmt.Sprintf("%d/%s", id.FamilyID, id.Path)
}
