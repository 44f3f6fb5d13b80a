// Package traffic is a small traffic-manager simulation built on stage
// pipelines: localization, collision, traffic light and motion stages run
// once per vehicle per tick over a ring road.
package traffic
