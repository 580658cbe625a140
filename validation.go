package knot

// validate is the validate-on-build pass: walk every descriptor's declared
// dependency list, keyed descriptors included, and collect every dependency
// token with no unkeyed registration. The build fails with the full report,
// never with just the first missing edge.
func (s *registrySnapshot) validate() error {
	var missing []MissingDependency

	collect := func(d *Descriptor) {
		for _, dep := range d.Dependencies {
			if s.registered(dep) {
				continue
			}
			missing = append(missing, MissingDependency{
				Dependent:    d.ServiceType,
				DependentKey: d.Key,
				Dependency:   dep,
			})
		}
	}

	for _, t := range s.order {
		for _, d := range s.services[t] {
			collect(d)
		}
	}
	for _, slot := range s.keyedOrder {
		for _, d := range s.keyedServices[slot] {
			collect(d)
		}
	}

	if len(missing) == 0 {
		return nil
	}
	return ValidationError{Missing: missing}
}
