/*
Package gconf implements a configuration store intended to be used as a
global, in-database configuration of an extension.

Each extension keeps a single configuration entity, stored under the
"_c:<package>" key. The initial value is loaded from the genesis file
("conf" section) and can later be changed only by the configuration owner,
using a patch message processed by UpdateConfigurationHandler.
*/
package gconf
