// Copyright 2018 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

// rule is one step of request validation: if failed reports true, err
// describes the failure.
type rule struct {
	failed func(*exportRequest) bool
	err    func(*exportRequest) error
}

// rules are evaluated in order; the first failing rule decides the error.
var rules = []rule{
	{
		failed: func(r *exportRequest) bool { return r.format != vcfFormat },
		err:    func(*exportRequest) error { return newUnsupportedFormatError(errUnsupportedFormat) },
	},
	{
		failed: func(r *exportRequest) bool { return r.malformed != nil },
		err:    func(r *exportRequest) error { return newInvalidInputError(r.malformed) },
	},
	{
		failed: func(r *exportRequest) bool { return r.start != nil && r.end != nil && *r.end <= *r.start },
		err:    func(*exportRequest) error { return newInvalidRangeError(errInvalidRange) },
	},
	{
		failed: func(r *exportRequest) bool { return r.start != nil && r.referenceName == "" },
		err:    func(*exportRequest) error { return newInvalidInputError(errStartWithoutName) },
	},
	{
		failed: func(r *exportRequest) bool { return r.referenceName == "" },
		err:    func(*exportRequest) error { return newUnsupportedError(errMissingName) },
	},
	{
		failed: func(r *exportRequest) bool { return r.species == "" },
		err:    func(*exportRequest) error { return newInvalidInputError(errMissingSpecies) },
	},
	{
		failed: func(r *exportRequest) bool { return len(r.studies) == 0 },
		err:    func(*exportRequest) error { return newInvalidInputError(errMissingStudies) },
	},
}

func (r *exportRequest) validate() error {
	for _, rule := range rules {
		if rule.failed(r) {
			return rule.err(r)
		}
	}
	return nil
}
