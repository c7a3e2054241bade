package redis

// Redis key naming conventions for stratum data.
// All keys are prefixed with "stratum:" to avoid collisions.

const keyPrefix = "stratum:"

// jobKey returns the Hash key for a job: stratum:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// stateKey returns the Set key tracking job IDs in a state:
// stratum:state:{state}
func stateKey(state string) string { return keyPrefix + "state:" + state }

// runsKey returns the List key of recorded attempts for a job:
// stratum:runs:{id}
func runsKey(id string) string { return keyPrefix + "runs:" + id }

// jobIDsKey is the Set tracking all job IDs for enumeration.
const jobIDsKey = keyPrefix + "job_ids"
