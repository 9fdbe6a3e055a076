package evm

// FactoryABI describes the release contract: its constructor takes the split,
// sale and royalty terms together with the metadata locator, and release()
// pays out the accumulated share of one payee.
const FactoryABI = `[
	{
		"type": "constructor",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "payees", "type": "address[]"},
			{"name": "shares_", "type": "uint256[]"},
			{"name": "_salePrice", "type": "uint256"},
			{"name": "name_", "type": "string"},
			{"name": "symbol_", "type": "string"},
			{"name": "_maxSupply", "type": "uint256"},
			{"name": "_royaltiesPercentage", "type": "uint256"},
			{"name": "_metadataURI", "type": "string"}
		]
	},
	{
		"type": "function",
		"name": "release",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": []
	},
	{
		"type": "function",
		"name": "released",
		"stateMutability": "view",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"type": "function",
		"name": "totalReleased",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`
