package models

// ResourceKind identifies the kind of AWS resource a tag state or finding
// refers to.
type ResourceKind string

const (
	ResourceEC2Instance ResourceKind = "EC2_INSTANCE"
	ResourceS3Bucket    ResourceKind = "S3_BUCKET"
)

// ResourceTagState is the collected tag snapshot of a single taggable
// resource. It is the unit of input to delta planning and compliance checks.
type ResourceTagState struct {
	// ResourceID is the instance ID for EC2 or the bucket name for S3.
	ResourceID string `json:"resource_id"`

	Kind   ResourceKind `json:"kind"`
	Region string       `json:"region"`

	// Tags holds the resource's current tags at collection time.
	Tags map[string]string `json:"tags,omitempty"`
}

// DeltaAction describes what a single tag delta will do when applied.
type DeltaAction string

const (
	// DeltaCreate means the desired key is absent from the resource.
	DeltaCreate DeltaAction = "create"

	// DeltaUpdate means the key is present but carries a different value.
	DeltaUpdate DeltaAction = "update"
)

// TagDelta is one required change to bring a resource's tags in line with
// the desired tag set.
type TagDelta struct {
	Key     string      `json:"key"`
	Desired string      `json:"desired"`
	Actual  string      `json:"actual,omitempty"`
	Action  DeltaAction `json:"action"`
}

// RegionTagData holds all resource tag states collected from one region.
type RegionTagData struct {
	Region    string             `json:"region"`
	Resources []ResourceTagState `json:"resources"`
}
