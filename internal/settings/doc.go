// Package settings holds the serializable description of every node in a
// topology document, and the ordered collection that owns those descriptions.
//
// A settings node is a plain record. It knows its identity (id, uuid), its
// display metadata (name, description, hide/disable flags, order) and its
// node-specific fields. It never knows which runtime type it becomes; that
// mapping lives in the type registry, which is reached through the
// Instantiator interface so this package stays free of registry imports.
//
// # Document shape
//
//	<Config>
//	  <ConfigVersion>3.1</ConfigVersion>
//	  <Devices>
//	    <Device id="1" type="GenericDevice">
//	      <Name>Projector</Name>
//	      <Order>10</Order>
//	    </Device>
//	  </Devices>
//	  <Ports>
//	    <Port id="2" type="IrPort"><Device>1</Device><Address>1</Address></Port>
//	  </Ports>
//	</Config>
//
// Elements are populated field by field through encoding/xml (see
// DecodeNode); the surrounding tree is handled with etree.
//
// # Thread Safety
//
// Collection guards its state with a single mutex. Batch operations take the
// lock once and fire a single "children changed" notification per call.
package settings
