// Package pkg provides the core libraries of parcyl, a build helper that
// keeps a Python project's requirements and metadata in one configuration
// file.
//
// # Overview
//
// The pkg directory is organized by concern:
//
//  1. [requirement] and [version] - PEP 508 requirement and PEP 440 version parsing
//  2. [manifest] - requirement collections, pins, transitive expansion and requirements files
//  3. [config] - the [parcyl] and [parcyl:requirements] sections of setup.cfg or pyproject.toml
//  4. [metadata], [site] and [integrations] - installed versions and package index lookups
//  5. [setup] - build attributes and the version info module
//  6. [cache], [errors] and [observability] - shared infrastructure
//
// # Architecture
//
// The typical data flow of "parcyl requirements --freeze --deep":
//
//	setup.cfg
//	    ↓
//	[config] package (typed, validated groups and pins)
//	    ↓
//	[requirement.Bind] (attach a [metadata.Registry])
//	    ↓
//	[manifest.Prefetch] (concurrent lookups against site-packages and PyPI)
//	    ↓
//	[manifest.Groups] (merge, pin, expand, render)
//	    ↓
//	requirements/*.txt and requirements.txt
//
// # Quick Start
//
//	cfg, err := config.Load("setup.cfg")
//	if err != nil {
//	    return err
//	}
//	client := pypi.NewClient(cache.NewNullCache("example"), time.Hour)
//	reg := metadata.NewRegistry(site.Discover(ctx, "python3", nil), client, nil)
//	requirement.Bind(reg, nil, cfg.Requirements.All()...)
//
//	groups := &manifest.Groups{Sets: cfg.Requirements.Groups(), Pins: cfg.Requirements.Pins}
//	paths, err := groups.Write(ctx, "requirements", manifest.GroupsOptions{
//	    WriteOptions: manifest.WriteOptions{Freeze: true},
//	})
//
// # Errors
//
// Fallible operations return *[errors.Error] values carrying a machine
// readable code; use [errors.Is] to branch on them. Metadata lookups degrade
// to "unknown" versions except when deep expansion needs them.
package pkg
