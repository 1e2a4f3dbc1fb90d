// Package artifact_source provides the bucket-backed object stores log objects are collected from.
//
// An [ObjectStore] lists the objects under a bucket prefix and fetches the raw bytes of a single object.
// Listing is always a full re-enumeration of the bucket. Fetch failures are typed:
//   - [NotFoundError] for missing objects and directory placeholder keys
//   - [TransientIOError] for objects which exist but could not be read
//
// Stores provided:
//   - [AwsS3BucketSource]
//   - [GcpStorageBucketSource]
//   - [FileSystemSource]
package artifact_source
