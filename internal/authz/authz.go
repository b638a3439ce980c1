// Package authz holds the authorization policy: a pure, deterministic
// decision over the actor's role and its relationship to the target
// entity. It has no side effects and is re-evaluated on every mutating
// call; decisions are never cached across requests.
package authz

import "github.com/hnakamura/project-management-api/internal/models"

// Action enumerates every guarded operation.
type Action string

const (
	ProjectCreate    Action = "project.create"
	ProjectUpdate    Action = "project.update"
	ProjectDelete    Action = "project.delete"
	ProjectAddMember Action = "project.add_member"
	TaskCreate       Action = "task.create"
	TaskUpdate       Action = "task.update"
	TaskDelete       Action = "task.delete"
	TaskComment      Action = "task.comment"
	UserManage       Action = "user.manage"
)

// Target snapshots the actor's relationship to the entity being acted on.
// Callers fill in the fields relevant to the action; zero values mean
// "no relationship".
type Target struct {
	// ProjectCreatorID is the creator of the project that owns the target.
	ProjectCreatorID uint64
	// ProjectMember is true when the actor has a membership in that project.
	ProjectMember bool
	// TaskAssignee is true when the actor is the task's current assignee.
	TaskAssignee bool
	// TaskCreator is true when the actor created the task.
	TaskCreator bool
	// StatusOnly is true when a task.update patch touches no field other
	// than status.
	StatusOnly bool
}

// Decide reports whether the actor may perform the action on the target.
func Decide(actor *models.User, action Action, target Target) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager:
		return decideManager(actor, action, target)
	case models.RoleDeveloper:
		return decideDeveloper(actor, action, target)
	}
	// Unknown role: deny.
	return false
}

func decideManager(actor *models.User, action Action, target Target) bool {
	switch action {
	case ProjectCreate:
		return true
	case ProjectUpdate, ProjectDelete, ProjectAddMember:
		return target.ProjectCreatorID == actor.ID
	case TaskCreate, TaskUpdate, TaskDelete, TaskComment:
		return target.ProjectCreatorID == actor.ID || target.ProjectMember
	case UserManage:
		return false
	}
	return false
}

func decideDeveloper(actor *models.User, action Action, target Target) bool {
	switch action {
	case TaskCreate:
		return target.ProjectMember
	case TaskUpdate:
		return target.TaskAssignee && target.StatusOnly
	case TaskDelete:
		return target.TaskCreator
	case TaskComment:
		return target.ProjectMember
	case ProjectCreate, ProjectUpdate, ProjectDelete, ProjectAddMember, UserManage:
		return false
	}
	return false
}
