package config

/*
censub — find subdomains through Censys certificate search
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// LookupEnv matches os.LookupEnv so tests can supply a fake environment.
type LookupEnv func(key string) (string, bool)

// EnvCredentials reads the pair from the environment.
// Either value may be missing; callers decide whether the pair is usable.
func EnvCredentials(lookup LookupEnv) Credentials {
	id, _ := lookup(EnvAPIID)
	secret, _ := lookup(EnvAPISecret)
	return Credentials{ID: id, Secret: secret}
}

// ResolveCredentials picks the credential pair to use.
//
// Sources are consulted lowest precedence first: file, environment, flags.
// A source only counts when it supplies both id and secret, and it then
// replaces the pair wholesale; halves are never mixed across sources.
func ResolveCredentials(file, env, flags Credentials) (Credentials, error) {
	var chosen Credentials
	for _, candidate := range []Credentials{file, env, flags} {
		if candidate.Complete() {
			chosen = candidate
		}
	}
	if !chosen.Complete() {
		return Credentials{}, ErrMissingCredentials
	}
	return chosen, nil
}
