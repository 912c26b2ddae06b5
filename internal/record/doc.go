// Package record defines the mutable entity borrowed by an update call
// and the values derived from it: the ordered attribute set, the
// validation error collection, the pre-mutation snapshot and the list of
// changed attributes.
//
// Entity is the concrete Record used by the store and the CLI. Any type
// satisfying Record can be driven through update.Workflow.
package record
