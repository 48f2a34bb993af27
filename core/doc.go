// Package core defines the shared contracts and value types of the askmesh
// orchestration core: tasks and plans, conversation turns, answers, records
// and the store interfaces (staging, todo, knowledge) implemented by the
// concern subpackages. Keeping the contracts here lets the planner,
// workers, recovery policy and synthesizer depend on one small package
// instead of each other.
package core
